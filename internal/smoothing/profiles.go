package smoothing

import (
	"sort"
	"strings"
)

// Named profiles covering the responsiveness/smoothness trade-off, from
// twitchy (responsive) to slow drift (ambient).
var profiles = map[string]Params{
	"responsive": {BufferSize: 3, InterpolationSteps: 50, ResponseSpeed: 0.8},
	"balanced":   {BufferSize: 8, InterpolationSteps: 100, ResponseSpeed: 0.5},
	"smooth":     {BufferSize: 15, InterpolationSteps: 200, ResponseSpeed: 0.3},
	"ambient":    {BufferSize: 20, InterpolationSteps: 300, ResponseSpeed: 0.2},
}

// Profile looks up a named parameter bundle.
func Profile(name string) (Params, bool) {
	p, ok := profiles[name]
	return p, ok
}

func profileNames() string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
