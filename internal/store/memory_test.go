package store_test

import (
	"testing"

	"poolScope/internal/store"
	"poolScope/internal/store/storetest"
)

func TestMemoryKV(t *testing.T) {
	storetest.RunKV(t, store.NewMemory(), 1)
}
