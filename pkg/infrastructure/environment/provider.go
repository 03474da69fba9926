package environment

import (
	"context"
	"math"
	"time"

	"github.com/vsinha/marketsim/pkg/domain/entities"
)

// Provider supplies the weather reading for a location at a time
type Provider interface {
	Signal(ctx context.Context, location string, at time.Time) (entities.EnvironmentalSignal, error)
}

// Static returns the same reading everywhere
type Static struct {
	Reading entities.EnvironmentalSignal
}

// Signal returns the fixed reading
func (s Static) Signal(context.Context, string, time.Time) (entities.EnvironmentalSignal, error) {
	return s.Reading, nil
}

// Synthetic derives a deterministic reading from the hour of day and the location name
type Synthetic struct {
	BaseTemperature float64
	Amplitude       float64
}

// NewSynthetic creates a synthetic provider around a base temperature
func NewSynthetic(base, amplitude float64) *Synthetic {
	return &Synthetic{BaseTemperature: base, Amplitude: amplitude}
}

// Signal returns base + amplitude*sin(hour/24*pi), shifted by a per-location offset
func (s *Synthetic) Signal(_ context.Context, location string, at time.Time) (entities.EnvironmentalSignal, error) {
	seed := len(location)
	temp := s.BaseTemperature + math.Sin(float64(at.Hour())/24*math.Pi)*s.Amplitude
	temp += float64(seed%10) - 5
	temp = math.Round(temp)

	var condition entities.WeatherCondition
	switch {
	case temp < 10:
		condition = entities.Cold
	case temp > 30:
		condition = entities.Sunny
	case seed%4 == 0:
		condition = entities.Rainy
	case seed%4 == 1:
		condition = entities.Cloudy
	default:
		condition = entities.Sunny
	}

	return entities.EnvironmentalSignal{TemperatureC: temp, Condition: condition}, nil
}
