package main

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// terrain noise, shared by every generated chunk
var sim = opensimplex.New(0)

// SetSeed reseeds the terrain noise. Call it before any chunk is generated.
func SetSeed(seed int64) {
	sim = opensimplex.New(seed)
}

func round(x float32) float32 {
	return float32(math.Round(float64(x)))
}

// fractal sums the base sample and octaves more, each at lacunarity times
// the frequency and persistence times the weight of the one before, and
// maps the weighted mean from [-1, 1] to [0, 1].
func fractal(octaves int, persistence, lacunarity float64, sample func(freq float64) float64) float32 {
	total, weight := sample(1), 1.0
	freq, amp := 1.0, 1.0
	for i := 0; i < octaves; i++ {
		freq *= lacunarity
		amp *= persistence
		weight += amp
		total += sample(freq) * amp
	}
	return float32((1 + total/weight) / 2)
}

func noise2(x, z float32, octaves int, persistence, lacunarity float64) float32 {
	return fractal(octaves, persistence, lacunarity, func(f float64) float64 {
		return sim.Eval2(float64(x)*f, float64(z)*f)
	})
}

func noise3(x, y, z float32, octaves int, persistence, lacunarity float64) float32 {
	return fractal(octaves, persistence, lacunarity, func(f float64) float64 {
		return sim.Eval3(float64(x)*f, float64(y)*f, float64(z)*f)
	})
}
