package querycache

import (
	"github.com/shirou/gopsutil/disk"
	"github.com/sirupsen/logrus"
)

// logDiskUsage reports the filesystem situation of the cache directory.
// Badger value logs grow fast during long attacks; the numbers make it
// obvious when a cache directory is about to fill its disk.
func (c *Cache) logDiskUsage() error {
	usage, err := disk.Usage(c.config.Path)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"path":         c.config.Path,
		"total_gb":     float64(usage.Total) / (1024 * 1024 * 1024),
		"free_gb":      float64(usage.Free) / (1024 * 1024 * 1024),
		"used_percent": usage.UsedPercent,
	}).Info("query cache disk usage")
	return nil
}
