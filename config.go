package newroutes

import (
	"fmt"

	"github.com/spf13/viper"
)

// ScenarioConfig is the configuration of an airspace experiment.
type ScenarioConfig struct {
	Seed       uint64
	OutputDir  string
	Verbose    bool
	MaxTime    float64 // upper bound on the phase duration (s)
	Radius     float64 // radius of the circle of start and end points (m)
	CenterX    float64
	CenterY    float64
	Segments   int
	Order      int
	Compressed bool
	Control    ControlOptions
	State      StateScaling
	SimStep    float64 // simulation step (s)
}

// ControlOptions are the bounds and scaling of the velocity controls.
type ControlOptions struct {
	Lower, Upper   float64 // m/s
	Scaler, Adder  float64
	RateContinuity bool
}

// Scaled returns the value as seen by the optimizer.
func (c ControlOptions) Scaled(v float64) float64 {
	return (v + c.Adder) * c.Scaler
}

// Clamp returns v within the control bounds.
func (c ControlOptions) Clamp(v float64) float64 {
	if v < c.Lower {
		return c.Lower
	}
	if v > c.Upper {
		return c.Upper
	}
	return v
}

// StateScaling is the scaling of the position states.
type StateScaling struct {
	Scaler, DefectScaler float64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.seed", 2)
	v.SetDefault("general.output_path", "./")
	v.SetDefault("general.verbose", false)
	v.SetDefault("general.max_time", 6500.0)
	v.SetDefault("general.radius", 4000.0)
	v.SetDefault("general.center_x", 0.0)
	v.SetDefault("general.center_y", 0.0)
	v.SetDefault("transcription.segments", 20)
	v.SetDefault("transcription.order", 3)
	v.SetDefault("transcription.compressed", true)
	v.SetDefault("controls.lower", -10.0)
	v.SetDefault("controls.upper", 10.0)
	v.SetDefault("controls.scaler", 200.0)
	v.SetDefault("controls.adder", -10.0)
	v.SetDefault("controls.rate_continuity", false)
	v.SetDefault("states.scaler", 0.01)
	v.SetDefault("states.defect_scaler", 0.1)
	v.SetDefault("simulation.step", 1.0)
}

// DefaultScenarioConfig returns the configuration used when no scenario file is provided.
func DefaultScenarioConfig() ScenarioConfig {
	v := viper.New()
	setDefaults(v)
	conf, err := readScenarioConfig(v)
	if err != nil {
		panic(err) // the defaults are valid
	}
	return conf
}

// LoadScenarioConfig reads the TOML scenario at path. Missing keys take their default values.
// The output directory may be overridden with the NEWROUTES_OUTPUT environment variable.
func LoadScenarioConfig(path string) (ScenarioConfig, error) {
	v := viper.New()
	setDefaults(v)
	if err := v.BindEnv("general.output_path", "NEWROUTES_OUTPUT"); err != nil {
		return ScenarioConfig{}, err
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return ScenarioConfig{}, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	return readScenarioConfig(v)
}

func readScenarioConfig(v *viper.Viper) (ScenarioConfig, error) {
	conf := ScenarioConfig{
		Seed:       uint64(v.GetInt64("general.seed")),
		OutputDir:  v.GetString("general.output_path"),
		Verbose:    v.GetBool("general.verbose"),
		MaxTime:    v.GetFloat64("general.max_time"),
		Radius:     v.GetFloat64("general.radius"),
		CenterX:    v.GetFloat64("general.center_x"),
		CenterY:    v.GetFloat64("general.center_y"),
		Segments:   v.GetInt("transcription.segments"),
		Order:      v.GetInt("transcription.order"),
		Compressed: v.GetBool("transcription.compressed"),
		Control: ControlOptions{
			Lower:          v.GetFloat64("controls.lower"),
			Upper:          v.GetFloat64("controls.upper"),
			Scaler:         v.GetFloat64("controls.scaler"),
			Adder:          v.GetFloat64("controls.adder"),
			RateContinuity: v.GetBool("controls.rate_continuity"),
		},
		State: StateScaling{
			Scaler:       v.GetFloat64("states.scaler"),
			DefectScaler: v.GetFloat64("states.defect_scaler"),
		},
		SimStep: v.GetFloat64("simulation.step"),
	}
	if conf.MaxTime <= 1 {
		return conf, fmt.Errorf("max_time must be greater than 1 s, got %f", conf.MaxTime)
	}
	if conf.Radius <= 0 {
		return conf, fmt.Errorf("radius must be positive, got %f", conf.Radius)
	}
	if conf.Control.Lower >= conf.Control.Upper {
		return conf, fmt.Errorf("control bounds [%f, %f] are empty", conf.Control.Lower, conf.Control.Upper)
	}
	if conf.SimStep <= 0 {
		return conf, fmt.Errorf("simulation step must be positive, got %f", conf.SimStep)
	}
	return conf, nil
}
