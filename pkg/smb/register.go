package smb

import (
	"fmt"

	"github.com/boristopalov/smbgym/pkg/environment"
)

const (
	EntryPoint      = "smb.NewEnv"
	MaxEpisodeSteps = 9999999
)

// Kwargs understood by the registered factory.
const (
	KwargLostLevels   = "lost_levels"
	KwargRenderMode   = "render_mode"
	KwargTarget       = "target"
	KwargRandomStages = "random_stages"
	KwargStages       = "stages"
)

func init() {
	for _, spec := range Specs() {
		if err := environment.Register(spec, newFromSpec); err != nil {
			panic(err)
		}
	}
}

// Specs lists every environment id this package provides.
func Specs() []environment.Spec {
	var specs []environment.Spec
	add := func(id string, kwargs map[string]any) {
		specs = append(specs, environment.Spec{
			ID:              id,
			EntryPoint:      EntryPoint,
			MaxEpisodeSteps: MaxEpisodeSteps,
			Kwargs:          kwargs,
		})
	}

	for v := RenderStandard; v <= RenderRectangle; v++ {
		add(fmt.Sprintf("SuperMarioBros-v%d", v), map[string]any{KwargRenderMode: v})
		add(fmt.Sprintf("SuperMarioBrosRandomStages-v%d", v), map[string]any{
			KwargRenderMode:   v,
			KwargRandomStages: true,
		})
		for world := 1; world <= Worlds; world++ {
			for stage := 1; stage <= StagesPerWorld; stage++ {
				add(fmt.Sprintf("SuperMarioBros-%d-%d-v%d", world, stage, v), map[string]any{
					KwargRenderMode: v,
					KwargTarget:     Stage{World: world, Stage: stage},
				})
			}
		}
	}
	for _, v := range []RenderMode{RenderStandard, RenderDownsample} {
		add(fmt.Sprintf("SuperMarioBros2-v%d", v), map[string]any{
			KwargRenderMode: v,
			KwargLostLevels: true,
		})
	}
	return specs
}

func newFromSpec(spec environment.Spec) (environment.Env, error) {
	cfg, err := configFromKwargs(spec.Kwargs)
	if err != nil {
		return nil, err
	}
	return NewEnv(cfg)
}

func configFromKwargs(kwargs map[string]any) (Config, error) {
	var cfg Config
	for key, value := range kwargs {
		switch key {
		case KwargLostLevels:
			b, ok := value.(bool)
			if !ok {
				return cfg, fmt.Errorf("%s: want bool, got %T", key, value)
			}
			cfg.LostLevels = b
		case KwargRenderMode:
			switch m := value.(type) {
			case RenderMode:
				cfg.Mode = m
			case int:
				cfg.Mode = RenderMode(m)
			default:
				return cfg, fmt.Errorf("%s: want RenderMode, got %T", key, value)
			}
		case KwargTarget:
			s, err := toStage(value)
			if err != nil {
				return cfg, fmt.Errorf("%s: %w", key, err)
			}
			cfg.Target = &s
		case KwargRandomStages:
			b, ok := value.(bool)
			if !ok {
				return cfg, fmt.Errorf("%s: want bool, got %T", key, value)
			}
			cfg.RandomStages = b
		case KwargStages:
			stages, err := toStages(value)
			if err != nil {
				return cfg, fmt.Errorf("%s: %w", key, err)
			}
			cfg.Stages = stages
		default:
			return cfg, fmt.Errorf("unexpected keyword argument %q", key)
		}
	}
	return cfg, nil
}

func toStage(v any) (Stage, error) {
	switch s := v.(type) {
	case Stage:
		return s, nil
	case string:
		return ParseStage(s)
	default:
		return Stage{}, fmt.Errorf("want Stage or \"world-stage\", got %T", v)
	}
}

func toStages(v any) ([]Stage, error) {
	switch list := v.(type) {
	case []Stage:
		return list, nil
	case []string:
		out := make([]Stage, 0, len(list))
		for _, s := range list {
			st, err := ParseStage(s)
			if err != nil {
				return nil, err
			}
			out = append(out, st)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("want []Stage or []string, got %T", v)
	}
}
