package pipeline

import (
	"testing"

	"github.com/dudu/facewarp/internal/config"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad mode", func(c *config.Config) { c.Render.Mode = "sideways" }},
		{"bad confidence", func(c *config.Config) { c.MinConfidence = 1.5 }},
		{"bad eye scale", func(c *config.Config) { c.Deform.LeftEye.Scale = 0 }},
		{"bad smoothness", func(c *config.Config) { c.Deform.Contour.Smoothness = 2 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := config.Default()
			c.mutate(&cfg)
			p, err := New(cfg)
			if err == nil {
				p.Close()
				t.Fatalf("New accepted invalid config")
			}
		})
	}
}
