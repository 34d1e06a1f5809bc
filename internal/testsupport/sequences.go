package testsupport

import (
	"fmt"
	"sync/atomic"
	"time"
)

var testSequence atomic.Uint64

func init() {
	// Offset by the clock so reruns against a shared database do not collide
	testSequence.Store(uint64(time.Now().UnixNano() % 1000000))
}

// NextSequence returns next unique sequence number
func NextSequence() uint64 {
	return testSequence.Add(1)
}

// UniqueName generates a unique name with given prefix
// Example: UniqueName("fixture") -> "fixture_123456"
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, NextSequence())
}

// UniqueSymbol generates a ticker symbol that fits VARCHAR(16)
// Example: UniqueSymbol("T") -> "T123456"
func UniqueSymbol(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, NextSequence()%10000000)
}

// UniqueURL generates a unique article URL
func UniqueURL() string {
	return fmt.Sprintf("https://news.test/articles/%d", NextSequence())
}
