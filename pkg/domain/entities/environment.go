package entities

// WeatherCondition is the sky condition half of an environmental signal
type WeatherCondition string

const (
	Sunny  WeatherCondition = "sunny"
	Cloudy WeatherCondition = "cloudy"
	Rainy  WeatherCondition = "rainy"
	Stormy WeatherCondition = "stormy"
	Cold   WeatherCondition = "cold"
)

// EnvironmentalSignal is the externally supplied weather reading used for pricing
type EnvironmentalSignal struct {
	TemperatureC float64          `json:"temperature_c"`
	Condition    WeatherCondition `json:"condition"`
}

// NeutralSignal is a mild reading with no sky effect
var NeutralSignal = EnvironmentalSignal{TemperatureC: 18}
