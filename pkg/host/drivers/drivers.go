// Package drivers assembles the built-in host drivers.
package drivers

import (
	"github.com/matzehuels/gantt/pkg/host"
	"github.com/matzehuels/gantt/pkg/host/ics"
	"github.com/matzehuels/gantt/pkg/host/memory"
	"github.com/matzehuels/gantt/pkg/host/mongo"
	"github.com/matzehuels/gantt/pkg/host/redis"
	"github.com/matzehuels/gantt/pkg/host/sqlite"
)

// Default returns a fresh table of every built-in driver.
func Default() host.Drivers {
	return host.Drivers{
		"memory": memory.Open,
		"sqlite": sqlite.Open,
		"redis":  redis.Open,
		"mongo":  mongo.Open,
		"ics":    ics.Open,
	}
}
