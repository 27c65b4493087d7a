// Package di wires databases, repositories, services and jobs into a Container.
package di

import (
	"github.com/epoch-iith/qmashup/internal/database"
	"github.com/epoch-iith/qmashup/internal/modules/library"
	"github.com/epoch-iith/qmashup/internal/modules/mashup"
	"github.com/epoch-iith/qmashup/internal/modules/pathing"
	"github.com/epoch-iith/qmashup/internal/modules/quantum"
	"github.com/epoch-iith/qmashup/internal/scheduler"
)

// Container holds all dependencies for the application.
//
// It is the single source of truth for service instances: Wire builds it and
// the server and CLI read from it.
type Container struct {
	// Databases
	LibraryDB *database.DB // Graphs and their segments
	RunsDB    *database.DB // Generated runs, steps and trajectories

	// Repositories
	GraphRepo *library.Repository
	RunRepo   *mashup.Repository

	// Engine components, stateless and shared
	Engine    *quantum.Engine
	Extractor *pathing.Extractor

	// Services
	GraphService  *library.Service
	MashupService *mashup.Service
	Exporter      *mashup.S3Exporter // Nil when no export bucket is configured
}

// JobInstances holds the background jobs so they can be scheduled and
// triggered manually
type JobInstances struct {
	Retention      *scheduler.RetentionJob
	CheckDatabases *scheduler.CheckDatabasesJob
	CheckWAL       *scheduler.CheckWALCheckpointsJob
}

// Databases returns the open databases in a fixed order
func (c *Container) Databases() []*database.DB {
	return []*database.DB{c.LibraryDB, c.RunsDB}
}

// Close closes every open database
func (c *Container) Close() error {
	var firstErr error
	for _, db := range c.Databases() {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
