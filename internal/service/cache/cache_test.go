package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RegionFeed/internal/domain/models"
)

func rec(code string) models.Record {
	return models.Record{RegionCode: code, StreetName: "s", CategoryName: "c"}
}

func TestEmptyCache(t *testing.T) {
	c := NewSnapshotCache()
	assert.Nil(t, c.Current())
	assert.Zero(t, c.Version())
}

func TestInstallReplacesWholesale(t *testing.T) {
	c := NewSnapshotCache()
	at := time.Now()
	in := []models.Record{rec("610103001")}

	s1 := c.Install(in, at)
	in[0].RegionCode = "mutated"

	require.Same(t, s1, c.Current())
	assert.Equal(t, uint64(1), s1.Version())
	assert.Equal(t, "610103001", c.Current().Records()[0].RegionCode)

	s2 := c.Install([]models.Record{rec("610102001"), rec("610102002")}, at.Add(time.Hour))
	assert.Equal(t, uint64(2), c.Version())
	assert.Same(t, s2, c.Current())
	// the superseded snapshot is untouched
	assert.Equal(t, 1, s1.Len())
}

func TestReadsAreIdentical(t *testing.T) {
	c := NewSnapshotCache()
	c.Install([]models.Record{rec("610103001"), rec("610104001")}, time.Now())

	a := c.Current().Records()
	a[0].StreetName = "x"
	b := c.Current().Records()
	d := c.Current().Records()
	assert.Equal(t, b, d)
	assert.Equal(t, "s", b[0].StreetName)
}

func TestConcurrentInstallVersionsAreUnique(t *testing.T) {
	c := NewSnapshotCache()
	var wg sync.WaitGroup
	seen := make(chan uint64, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- c.Install(nil, time.Now()).Version()
			_ = c.Current().Len()
		}()
	}
	wg.Wait()
	close(seen)

	uniq := map[uint64]bool{}
	for v := range seen {
		uniq[v] = true
	}
	assert.Len(t, uniq, 50)
	assert.Equal(t, uint64(50), c.Version())
}
