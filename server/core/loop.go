package core

import (
	"sync"
	"time"

	"github.com/leap-fish/necs/esync/srvsync"
	"github.com/rs/zerolog"
)

type GameLoop struct {
	server   *Server
	tickRate int
	stopOnce sync.Once
	stopChan chan struct{}
	log      zerolog.Logger
}

func NewGameLoop(server *Server, tickRate int, log zerolog.Logger) *GameLoop {
	return &GameLoop{
		server:   server,
		tickRate: tickRate,
		stopChan: make(chan struct{}),
		log:      log.With().Str("component", "loop").Logger(),
	}
}

func (g *GameLoop) Run() {
	ticker := time.NewTicker(time.Second / time.Duration(g.tickRate))
	defer ticker.Stop()

	g.log.Info().Int("tickRate", g.tickRate).Msg("game loop started")

	for {
		select {
		case <-g.stopChan:
			g.log.Info().Msg("game loop stopped")
			return
		case <-ticker.C:
			g.tick()
		}
	}
}

func (g *GameLoop) Stop() {
	g.stopOnce.Do(func() { close(g.stopChan) })
}

// tick runs one fixed step in a fixed order: inputs and character movement,
// then queued requests against the moved characters, then replication.
func (g *GameLoop) tick() {
	g.server.Step(1 / float64(g.tickRate))

	g.server.worldMu.Lock()
	err := srvsync.DoSync()
	g.server.worldMu.Unlock()
	if err != nil {
		g.log.Error().Err(err).Msg("sync error")
	}
}
