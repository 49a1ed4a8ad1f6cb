package utils

import (
	"fmt"
	"math/rand"
	"time"
)

func GenerateJobID() string {
	return fmt.Sprintf("%d%x", time.Now().UnixNano(), rand.Intn(10000))
}
