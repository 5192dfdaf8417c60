package rig

import (
	_ "embed"
	"encoding/json"

	"github.com/pkg/errors"
)

//go:embed rig_model.json
var defaultModelJSON []byte

// ErrNoModelInformation is used when there is no model information.
var ErrNoModelInformation = errors.New("no model information")

// ModelConfig holds every geometric constant the rig is built from. Lengths
// are scene units, angles radians. The radius fields are cosmetic segment
// thicknesses for renderers; kinematics never reads them.
type ModelConfig struct {
	Name                   string             `json:"name"`
	BaseHeight             float64            `json:"base_height"`
	ShoulderHeight         float64            `json:"shoulder_height"`
	UpperArmLength         float64            `json:"upper_arm_length"`
	ForearmLength          float64            `json:"forearm_length"`
	WristLength            float64            `json:"wrist_length"`
	FlangeLength           float64            `json:"flange_length"`
	EffectorLength         float64            `json:"effector_length"`
	UpperArmRadius         float64            `json:"upper_arm_radius,omitempty"`
	ForearmRadius          float64            `json:"forearm_radius,omitempty"`
	FingerOpenSeparation   float64            `json:"finger_open_separation"`
	FingerClosedSeparation float64            `json:"finger_closed_separation"`
	RestAngles             map[string]float64 `json:"rest_angles,omitempty"`
}

// UnmarshalModelJSON parses a rig model from JSON.
func UnmarshalModelJSON(jsonData []byte) (ModelConfig, error) {
	var cfg ModelConfig
	if len(jsonData) == 0 {
		return cfg, ErrNoModelInformation
	}
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to unmarshal rig model json")
	}
	return cfg, cfg.Validate()
}

// Validate checks that the model describes a buildable arm.
func (cfg *ModelConfig) Validate() error {
	if cfg.UpperArmLength <= 0 {
		return errors.New("upper_arm_length must be positive")
	}
	if cfg.ForearmLength <= 0 {
		return errors.New("forearm_length must be positive")
	}
	if cfg.FingerOpenSeparation < cfg.FingerClosedSeparation {
		return errors.New("finger_open_separation must be at least finger_closed_separation")
	}
	return nil
}

var defaultModel = func() ModelConfig {
	cfg, err := UnmarshalModelJSON(defaultModelJSON)
	if err != nil {
		panic(err)
	}
	return cfg
}()

// DefaultModel returns the embedded six-joint model.
func DefaultModel() ModelConfig {
	cfg := defaultModel
	if len(cfg.RestAngles) != 0 {
		rest := make(map[string]float64, len(cfg.RestAngles))
		for k, v := range cfg.RestAngles {
			rest[k] = v
		}
		cfg.RestAngles = rest
	}
	return cfg
}
