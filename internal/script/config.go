// Package script embeds a Lua interpreter (gopher-lua) as the
// coordinator's config- and scene-description evaluator. Both the
// evaluator internals and the scripting language itself are treated
// as external, out-of-scope collaborators; this package exposes only
// the narrow interface the coordinator's engine consumes: a resolved
// Config table and a SceneDecl.
package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/ogre/flexrender/pkg/geom"
)

// Config is what a config script (§6) yields: a table with workers,
// runaway margin, image shape and scene bounds.
type Config struct {
	Workers      []string
	Runaway      float32
	ImageWidth   uint32
	ImageHeight  uint32
	ImageName    string
	Buffers      []string
	SceneMin     geom.Vector
	SceneMax     geom.Vector
	MaxIntervals int
	LinearScan   bool
}

// LoadConfig evaluates path and interprets its single returned table
// as a Config. The script has no access to engine state; it is run to
// completion and its return value is read back out of the VM.
func LoadConfig(path string) (Config, error) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoFile(path); err != nil {
		return Config{}, fmt.Errorf("evaluate config script %s: %w", path, err)
	}

	tbl, ok := L.Get(-1).(*lua.LTable)
	if !ok {
		return Config{}, fmt.Errorf("config script %s did not return a table", path)
	}

	var cfg Config
	cfg.Workers = stringSlice(tbl.RawGetString("workers"))
	cfg.Runaway = float32(numberOr(tbl.RawGetString("runaway"), 0)) / 100
	cfg.MaxIntervals = int(numberOr(tbl.RawGetString("intervals"), 3))
	cfg.LinearScan = boolOr(tbl.RawGetString("linear_scan"), false)

	if size, ok := tbl.RawGetString("size").(*lua.LTable); ok {
		cfg.ImageWidth = uint32(numberOr(size.RawGetString("width"), 0))
		cfg.ImageHeight = uint32(numberOr(size.RawGetString("height"), 0))
	}
	cfg.ImageName = stringOr(tbl.RawGetString("name"), "render")
	cfg.Buffers = stringSlice(tbl.RawGetString("buffers"))

	if bounds, ok := tbl.RawGetString("scene").(*lua.LTable); ok {
		cfg.SceneMin = vectorOr(bounds.RawGetString("min"))
		cfg.SceneMax = vectorOr(bounds.RawGetString("max"))
	}

	return cfg, nil
}

func stringOr(v lua.LValue, def string) string {
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return def
}

func numberOr(v lua.LValue, def float64) float64 {
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return def
}

func boolOr(v lua.LValue, def bool) bool {
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

func stringSlice(v lua.LValue) []string {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil
	}
	out := make([]string, 0, tbl.Len())
	tbl.ForEach(func(_ lua.LValue, val lua.LValue) {
		if s, ok := val.(lua.LString); ok {
			out = append(out, string(s))
		}
	})
	return out
}

func vectorOr(v lua.LValue) geom.Vector {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return geom.Vector{}
	}
	return geom.Vector{
		X: numberOr(tbl.RawGetInt(1), 0),
		Y: numberOr(tbl.RawGetInt(2), 0),
		Z: numberOr(tbl.RawGetInt(3), 0),
	}
}
