package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/epoch-iith/qmashup/internal/modules/library"
	"github.com/epoch-iith/qmashup/internal/modules/mashup"
)

// InitializeRepositories creates the repositories over the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.GraphRepo = library.NewRepository(container.LibraryDB.Conn(), log)
	container.RunRepo = mashup.NewRepository(container.RunsDB.Conn(), log)

	log.Info().Msg("Repositories initialized")
	return nil
}
