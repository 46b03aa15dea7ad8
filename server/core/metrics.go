package core

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/automoto/frontline-mp/server/core"

// Metrics holds the combat counters. The meter comes from the global OTel
// provider and is a no-op unless one is installed.
type Metrics struct {
	shotsFired    metric.Int64Counter
	fireRejected  metric.Int64Counter
	emptyClicks   metric.Int64Counter
	reloads       metric.Int64Counter
	damageApplied metric.Int64Counter
	deaths        metric.Int64Counter
	spawns        metric.Int64Counter
}

func NewMetrics() (*Metrics, error) {
	return newMetrics(otel.Meter(instrumentationName))
}

func newMetrics(m metric.Meter) (*Metrics, error) {
	var (
		mt  Metrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&mt.shotsFired, "combat.shots_fired", "Shots that passed validation"},
		{&mt.fireRejected, "combat.fire_rejected", "Fire requests rejected by validation"},
		{&mt.emptyClicks, "combat.empty_clicks", "Fire requests on an empty magazine"},
		{&mt.reloads, "combat.reloads", "Accepted reloads"},
		{&mt.damageApplied, "combat.damage_applied", "Damage events applied to a living player"},
		{&mt.deaths, "combat.deaths", "Player deaths"},
		{&mt.spawns, "combat.spawns", "Player spawns"},
	}
	for _, c := range counters {
		*c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
	}
	return &mt, nil
}

func (m *Metrics) rejected(reason string) {
	m.fireRejected.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("reason", reason)))
}

func inc(c metric.Int64Counter) {
	c.Add(context.Background(), 1)
}
