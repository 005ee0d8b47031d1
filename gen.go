package main

// generate fills c with the noise terrain. Columns are generated whole and
// clipped to the chunk, so vertically stacked chunks agree on the blocks
// that cross their border.
func generate(c *Chunk) {
	o := c.Origin()
	put := func(x, y, z, tp int) {
		y -= o.Y
		if y < 0 || y >= ChunkWidth {
			return
		}
		c.set(x-o.X, y, z-o.Z, tp)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for dx := 0; dx < ChunkWidth; dx++ {
		for dz := 0; dz < ChunkWidth; dz++ {
			x, z := o.X+dx, o.Z+dz
			f := noise2(float32(x)*0.01, float32(z)*0.01, 4, 0.5, 2)
			g := noise2(float32(-x)*0.01, float32(-z)*0.01, 2, 0.9, 2)
			mh := int(g*32 + 16)
			h := int(f * float32(mh))
			w := Grass
			if h <= 12 {
				h = 12
				w = Sand
			}
			// grass and sand over dirt and stone
			for y := 0; y < h; y++ {
				tp := w
				switch {
				case y < h-4:
					tp = Stone
				case y < h-1 && w == Grass:
					tp = Dirt
				}
				put(x, y, z, tp)
			}

			// snow caps
			if w == Grass && h > 34 {
				put(x, h-1, z, Snow)
			}

			// light stones
			if w == Grass && noise2(-float32(x)*0.1, float32(z)*0.1, 4, 0.8, 2) > 0.78 {
				put(x, h, z, LightStone)
			}

			// tree
			if w == Grass && h <= 34 {
				ok := true
				if dx-4 < 0 || dz-4 < 0 ||
					dx+4 > ChunkWidth || dz+4 > ChunkWidth {
					ok = false
				}
				if ok && noise2(float32(x), float32(z), 6, 0.5, 2) > 0.79 {
					for y := h + 3; y < h+8; y++ {
						for ox := -3; ox <= 3; ox++ {
							for oz := -3; oz <= 3; oz++ {
								d := ox*ox + oz*oz + (y-h-4)*(y-h-4)
								if d < 11 {
									put(x+ox, y, z+oz, Leaves)
								}
							}
						}
					}
					for y := h; y < h+7; y++ {
						put(x, y, z, Wood)
					}
				}
			}

			// cloud
			for y := 64; y < 72; y++ {
				if noise3(float32(x)*0.01, float32(y)*0.1, float32(z)*0.01, 8, 0.5, 2) > 0.69 {
					put(x, y, z, Cloud)
				}
			}
		}
	}
}
