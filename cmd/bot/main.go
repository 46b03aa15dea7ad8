// Command bot is a headless client that joins a server, spawns, wanders and
// shoots at the nearest player. It is used for load and soak testing.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/automoto/frontline-mp/config"
	"github.com/automoto/frontline-mp/network"
	"github.com/automoto/frontline-mp/server/arena"
	"github.com/automoto/frontline-mp/shared/character"
	"github.com/automoto/frontline-mp/shared/gamemath"
	"github.com/automoto/frontline-mp/shared/leveldata"
	"github.com/automoto/frontline-mp/shared/messages"
	"github.com/automoto/frontline-mp/shared/protocol"
	"github.com/automoto/frontline-mp/shared/weapons"
	"github.com/leap-fish/necs/esync"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	joinTimeout   = 10 * time.Second
	respawnDelay  = 2 * time.Second
	reloadBackoff = 500 * time.Millisecond
)

type options struct {
	Address string
	Name    string
	Version string
	Weapon  string
	Seed    uint64
}

func main() {
	configDir := flag.String("config", ".", "Directory containing frontline.yaml")
	addr := flag.String("addr", "localhost:7373", "Server address")
	name := flag.String("name", "bot", "Player name")
	version := flag.String("version", "", "Client version sent on join")
	weapon := flag.String("weapon", "", "Weapon to switch to after joining")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")
	flag.Parse()

	cfg, err := config.Load(viper.New(), *configDir)
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load config")
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Str("bot", *name).Logger()

	if err := protocol.RegisterComponents(); err != nil {
		log.Fatal().Err(err).Msg("failed to register components")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, options{
		Address: *addr,
		Name:    *name,
		Version: *version,
		Weapon:  *weapon,
		Seed:    *seed,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("bot stopped")
	}
	log.Info().Msg("bot stopped")
}

func run(ctx context.Context, cfg *config.Config, opts options, log zerolog.Logger) error {
	catalog := weapons.DefaultCatalog()
	if cfg.Weapons.CatalogFile != "" {
		var err error
		if catalog, err = weapons.LoadCatalog(cfg.Weapons.CatalogFile); err != nil {
			return fmt.Errorf("load weapon catalog: %w", err)
		}
	}

	// Without local level data the bot still plays, it just does not predict.
	levels, _, err := leveldata.LoadAllLevels(os.DirFS(cfg.Server.AssetsDir), "levels")
	if err != nil {
		log.Warn().Err(err).Msg("no local levels, prediction disabled")
	}

	client := network.NewClient(log)
	client.Connect(opts.Address, opts.Version, opts.Name)
	defer client.Disconnect()

	if err := waitJoined(ctx, client); err != nil {
		return err
	}
	self := client.NetworkID()
	log.Info().Uint("networkID", uint(self)).Str("map", client.Map()).Msg("joined")

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed>>1|1))
	view := network.NewWeaponView(catalog, network.NopCosmetics{}, rng, log)
	view.SetLocal(self)
	pres := &network.Presentation{Weapon: view, Health: network.NewHealthView(0)}

	pred := newPredictor(nil, cfg.Movement)
	pred.SetWorld(worldFor(levels, client.Map(), cfg.Collision))
	b := newBrain(defaultTuning(cfg.Movement.StandCapsule().Top()), rng)

	if opts.Weapon != "" {
		if err := client.SwitchWeapon(opts.Weapon); err != nil {
			log.Warn().Err(err).Str("weapon", opts.Weapon).Msg("switch request failed")
		}
	}

	tickRate := client.TickRate()
	if tickRate <= 0 {
		tickRate = cfg.Server.TickRate
	}
	step := time.Second / time.Duration(tickRate)
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	var (
		world       map[esync.NetworkId]network.EntityState
		lastSpawnRq time.Time
		lastFire    time.Time
		lastReload  time.Time
		lastState   botState
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if client.State() == network.StateError {
				return client.LastError()
			}
			if client.State() == network.StateDisconnected {
				return errors.New("connection closed by server")
			}
			dt := step.Seconds()

			for _, evt := range client.DrainMapEvents() {
				log.Info().Str("map", evt.Name).Msg("map changed")
				pred.SetWorld(worldFor(levels, evt.Name, cfg.Collision))
			}

			for _, sc := range pres.Pump(client) {
				log.Debug().Floats64("position", sc.Position[:]).Msg("spawned")
				pred.Reset(sc.Position, gamemath.YawRotation(sc.Yaw))
			}

			if snap := client.LatestSnapshot(); snap != nil {
				world = network.DecodeSnapshot(*snap, self)
				if me, ok := world[self]; ok {
					if me.Weapon != nil {
						view.ApplyReplicated(*me.Weapon)
					}
					if me.Alive() {
						pred.Reconcile(me.Character.LastSequence, me.Transform.Position)
					}
				}
			}

			view.Update(step)
			pres.Health.Update(dt)

			b.addRecoil(view.TakeRecoil())
			d := b.decide(self, world, dt)
			if b.state != lastState {
				log.Debug().Stringer("from", lastState).Stringer("to", b.state).Msg("state change")
				lastState = b.state
			}

			if b.state == stateWaiting {
				if now.Sub(lastSpawnRq) >= respawnDelay {
					lastSpawnRq = now
					if err := client.RequestSpawn(); err != nil {
						log.Warn().Err(err).Msg("spawn request failed")
					}
				}
				continue
			}

			input := messages.PlayerInput{
				Rotation:    d.Rotation(),
				Move:        d.Move,
				Jump:        d.Jump,
				JumpSustain: d.Jump,
				Sprint:      d.Sprint,
				Timestamp:   now.UnixMilli(),
			}
			input = pred.Next(input, dt)
			if err := client.SendMessage(input); err != nil {
				log.Warn().Err(err).Msg("send input failed")
			}

			pos, ok := pred.Position()
			if me, found := world[self]; !ok && found && me.Transform != nil {
				pos, ok = me.Transform.Position, true
			}
			if !ok {
				continue
			}

			hud := view.HUD()
			if d.Fire && now.Sub(lastFire) >= fireInterval(catalog, hud.WeaponID) {
				lastFire = now
				if err := client.Fire(b.eye(pos), d.Aim()); err != nil {
					log.Warn().Err(err).Msg("fire request failed")
				}
			}
			if d.Reload && now.Sub(lastReload) >= reloadBackoff {
				lastReload = now
				if err := client.Reload(); err != nil {
					log.Warn().Err(err).Msg("reload request failed")
				}
			}
		}
	}
}

func waitJoined(ctx context.Context, client *network.Client) error {
	ctx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()
	for {
		switch client.State() {
		case network.StateJoinedGame:
			return nil
		case network.StateError:
			return client.LastError()
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for join: %w", ctx.Err())
		case <-poll.C:
		}
	}
}

// worldFor builds a local collision world for name, or nil if the level is
// not available locally.
func worldFor(levels map[string]*leveldata.LevelData, name string, cfg arena.Config) character.CollisionWorld {
	data, ok := levels[name]
	if !ok {
		return nil
	}
	return arena.New(data, cfg)
}

func fireInterval(catalog *weapons.Catalog, id string) time.Duration {
	def, err := catalog.Lookup(id)
	if err != nil {
		return time.Second
	}
	return def.FireInterval()
}
