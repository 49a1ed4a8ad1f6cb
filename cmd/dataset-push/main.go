package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"powerbi-insight/auth"
	"powerbi-insight/config"
	"powerbi-insight/powerbi"
	"powerbi-insight/upload"
)

// Pousse un fichier CSV/XLSX vers le workspace en ligne de commande,
// sans passer par le serveur.
func main() {
	var file string
	var dataset string
	var table string
	var dryRun bool

	flag.StringVar(&file, "file", "", "CSV or XLSX file to push (required)")
	flag.StringVar(&dataset, "dataset", "", "Dataset name (default: powerbi.yaml)")
	flag.StringVar(&table, "table", "", "Table name (default: powerbi.yaml)")
	flag.BoolVar(&dryRun, "dry-run", false, "Decode and show the inferred schema without pushing")
	flag.Parse()

	if file == "" {
		fmt.Println("Usage : dataset-push --file <chemin> [--dataset <nom>] [--table <nom>] [--dry-run]")
		os.Exit(1)
	}

	cfg, err := auth.LoadConfig("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed loading config.yaml : %v\n", err)
		os.Exit(2)
	}
	pbiCfg, err := config.LoadPowerBIConfig(cfg.PowerBIFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed loading %s : %v\n", cfg.PowerBIFile, err)
		os.Exit(2)
	}
	if dataset == "" {
		dataset = pbiCfg.DatasetName
	}
	if table == "" {
		table = pbiCfg.TableName
	}

	f, err := os.Open(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed opening file : %v\n", err)
		os.Exit(2)
	}
	defer f.Close()
	rows, err := upload.DecodeFile(filepath.Base(file), f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed decoding file : %v\n", err)
		os.Exit(2)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "No data rows in file")
		os.Exit(2)
	}
	fmt.Printf("Decoded %d rows from %s\n", len(rows), file)

	if dryRun {
		fmt.Printf("\n--- Schema for dataset %q, table %q : ---\n", dataset, table)
		for _, col := range powerbi.InferColumns(rows[0]) {
			fmt.Printf("  %-30s %s\n", col.Name, col.DataType)
		}
		return
	}

	svc := powerbi.NewService(pbiCfg, nil)
	res, err := svc.Sync(dataset, table, rows)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sync failed : %v\n", err)
		os.Exit(2)
	}
	fmt.Printf("Sync done. dataset=%s id=%s\n", dataset, res.DatasetID)
	for _, warn := range res.Warnings {
		fmt.Println("  warning :", warn)
	}
}
