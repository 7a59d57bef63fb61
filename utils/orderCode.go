package utils

import (
	"crypto/rand"
	"log"
	"math/big"
	"sync/atomic"
	"time"
)

var lastOrderCode int64

// GenerateOrderCode produces the numeric code the payment gateway round-trips
// back on webhooks. Millisecond timestamp plus a random 3-digit suffix keeps
// codes unique across instances; the CAS floor keeps them strictly increasing
// within one process even under bursts in the same millisecond.
func GenerateOrderCode() int64 {
	for {
		last := atomic.LoadInt64(&lastOrderCode)
		candidate := time.Now().UnixMilli()*1000 + randomSuffix()
		if candidate <= last {
			candidate = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastOrderCode, last, candidate) {
			return candidate
		}
	}
}

func randomSuffix() int64 {
	suffix, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		log.Printf("Error generating order code suffix: %v", err)
		return time.Now().UnixNano() % 1000
	}
	return suffix.Int64()
}
