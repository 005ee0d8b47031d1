package main

import (
	"image"
	"image/color"
	"image/draw"
	_ "image/png"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/icexin/chunkmesh/mesh"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// TextureRegistry maps block types to atlas cells. Register everything
// before meshing starts: lookups take no lock.
type TextureRegistry struct {
	atlas    mesh.Atlas
	textures map[mesh.BlockID]*mesh.BlockTexture
	names    map[mesh.BlockID]string
}

func NewTextureRegistry(atlas mesh.Atlas) *TextureRegistry {
	return &TextureRegistry{
		atlas:    atlas,
		textures: make(map[mesh.BlockID]*mesh.BlockTexture),
		names:    make(map[mesh.BlockID]string),
	}
}

func (r *TextureRegistry) Atlas() mesh.Atlas {
	return r.atlas
}

func (r *TextureRegistry) Register(id mesh.BlockID, name string, tex mesh.BlockTexture) error {
	if id == 0 {
		return errors.Errorf("block %q: id 0 is air", name)
	}
	if _, ok := r.textures[id]; ok {
		return errors.Errorf("block %q: id %d registered twice", name, id)
	}
	for _, f := range mesh.Faces {
		if c := tex.Face(f); !r.atlas.Contains(c) {
			return errors.Errorf("block %q: %s cell %v outside the %d cell atlas", name, f, c, r.atlas.Cells())
		}
	}
	r.textures[id] = &tex
	r.names[id] = name
	return nil
}

func (r *TextureRegistry) Lookup(id mesh.BlockID) (*mesh.BlockTexture, bool) {
	tex, ok := r.textures[id]
	return tex, ok
}

// Has reports whether the world block type tp has a texture.
func (r *TextureRegistry) Has(tp int) bool {
	if tp <= 0 || tp > 0xffff {
		return false
	}
	_, ok := r.textures[mesh.BlockID(tp)]
	return ok
}

func (r *TextureRegistry) Name(id mesh.BlockID) string {
	return r.names[id]
}

// IDs returns the registered block ids in ascending order.
func (r *TextureRegistry) IDs() []mesh.BlockID {
	ids := make([]mesh.BlockID, 0, len(r.textures))
	for id := range r.textures {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type textureDesc struct {
	Blocks []blockDesc `yaml:"blocks"`
}

// blockDesc names atlas cells by tile index, row major from the first cell.
// faces lists top, bottom, left, right, front and back.
type blockDesc struct {
	ID     int    `yaml:"id"`
	Name   string `yaml:"name"`
	All    *int   `yaml:"all"`
	Top    *int   `yaml:"top"`
	Bottom *int   `yaml:"bottom"`
	Side   *int   `yaml:"side"`
	Faces  []int  `yaml:"faces"`
	Color  string `yaml:"color"`
}

func (d *blockDesc) tiles() ([6]int, error) {
	var t [6]int
	switch {
	case len(d.Faces) != 0:
		if len(d.Faces) != 6 {
			return t, errors.Errorf("faces needs 6 tiles, got %d", len(d.Faces))
		}
		copy(t[:], d.Faces)
		return t, nil
	case d.All != nil:
		for i := range t {
			t[i] = *d.All
		}
	case d.Side != nil:
		for i := range t {
			t[i] = *d.Side
		}
	default:
		return t, errors.New("no tile given")
	}
	if d.Top != nil {
		t[mesh.Top] = *d.Top
	}
	if d.Bottom != nil {
		t[mesh.Bottom] = *d.Bottom
	}
	return t, nil
}

// LoadTextureDesc reads a yaml block texture descriptor.
func LoadTextureDesc(path string, atlas mesh.Atlas) (*TextureRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read texture desc")
	}
	var desc textureDesc
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, errors.Wrapf(err, "parse texture desc %s", path)
	}
	r := NewTextureRegistry(atlas)
	for _, b := range desc.Blocks {
		if b.ID <= 0 || b.ID > 0xffff {
			return nil, errors.Errorf("block %q: id %d out of range", b.Name, b.ID)
		}
		tiles, err := b.tiles()
		if err != nil {
			return nil, errors.Wrapf(err, "block %q", b.Name)
		}
		col, err := parseColor(b.Color)
		if err != nil {
			return nil, errors.Wrapf(err, "block %q", b.Name)
		}
		tex, err := makeBlockTexture(atlas, tiles, col)
		if err != nil {
			return nil, errors.Wrapf(err, "block %q", b.Name)
		}
		if err := r.Register(mesh.BlockID(b.ID), b.Name, tex); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func makeBlockTexture(atlas mesh.Atlas, tiles [6]int, col color.RGBA) (mesh.BlockTexture, error) {
	tex := mesh.BlockTexture{Color: col}
	cells := atlas.Cells()
	for i, tile := range tiles {
		if tile < 0 || tile >= cells*cells || cells > 256 {
			return tex, errors.Errorf("tile %d outside the %d cell atlas", tile, cells)
		}
		tex.Faces[i] = mesh.AtlasCoord{X: uint8(tile % cells), Y: uint8(tile / cells)}
	}
	return tex, nil
}

// parseColor accepts #rrggbb and #rrggbbaa. Empty is opaque white.
func parseColor(s string) (color.RGBA, error) {
	if s == "" {
		return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, nil
	}
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 && len(h) != 8 {
		return color.RGBA{}, errors.Errorf("bad color %q", s)
	}
	if len(h) == 6 {
		h += "ff"
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, errors.Wrapf(err, "bad color %q", s)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// defaultBlocks uses the 16x16 tile layout of the classic craft texture:
// side, top and bottom tile per block type.
var defaultBlocks = []struct {
	id                int
	name              string
	side, top, bottom int
	color             color.RGBA
}{
	{Grass, "grass", 16, 32, 0, color.RGBA{R: 0x5b, G: 0x9b, B: 0x36, A: 0xff}},
	{Sand, "sand", 1, 1, 1, color.RGBA{R: 0xdb, G: 0xd0, B: 0x9c, A: 0xff}},
	{Stone, "stone", 2, 2, 2, color.RGBA{R: 0x7d, G: 0x7d, B: 0x7d, A: 0xff}},
	{Brick, "brick", 3, 3, 3, color.RGBA{R: 0x96, G: 0x4b, B: 0x3c, A: 0xff}},
	{Wood, "wood", 20, 36, 4, color.RGBA{R: 0x66, G: 0x51, B: 0x32, A: 0xff}},
	{Cement, "cement", 5, 5, 5, color.RGBA{R: 0xa8, G: 0xa8, B: 0xa0, A: 0xff}},
	{Dirt, "dirt", 6, 6, 6, color.RGBA{R: 0x86, G: 0x60, B: 0x43, A: 0xff}},
	{Plank, "plank", 7, 7, 7, color.RGBA{R: 0xb8, G: 0x94, B: 0x5f, A: 0xff}},
	{Snow, "snow", 24, 40, 8, color.RGBA{R: 0xf0, G: 0xfb, B: 0xfb, A: 0xff}},
	{Glass, "glass", 9, 9, 9, color.RGBA{R: 0xc0, G: 0xf5, B: 0xfe, A: 0x80}},
	{Cobble, "cobble", 10, 10, 10, color.RGBA{R: 0x6e, G: 0x6e, B: 0x6e, A: 0xff}},
	{LightStone, "light stone", 11, 11, 11, color.RGBA{R: 0xf8, G: 0xe0, B: 0x8e, A: 0xff}},
	{DarkStone, "dark stone", 12, 12, 12, color.RGBA{R: 0x3c, G: 0x3c, B: 0x3c, A: 0xff}},
	{Chest, "chest", 13, 13, 13, color.RGBA{R: 0x9c, G: 0x6b, B: 0x30, A: 0xff}},
	{Leaves, "leaves", 14, 14, 14, color.RGBA{R: 0x3a, G: 0x7d, B: 0x22, A: 0xff}},
	{Cloud, "cloud", 15, 15, 15, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
}

// DefaultTextures registers the built in block types. The atlas must have
// at least 16 cells per side.
func DefaultTextures(atlas mesh.Atlas) (*TextureRegistry, error) {
	r := NewTextureRegistry(atlas)
	for _, b := range defaultBlocks {
		tiles := [6]int{b.top, b.bottom, b.side, b.side, b.side, b.side}
		tex, err := makeBlockTexture(atlas, tiles, b.color)
		if err != nil {
			return nil, errors.Wrapf(err, "block %q", b.name)
		}
		if err := r.Register(mesh.BlockID(b.id), b.name, tex); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func loadImage(fname string) ([]uint8, image.Rectangle, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba.Pix, img.Bounds(), nil
}

// LoadAtlas decodes the atlas image and describes it as a square atlas of
// cellTexels sized cells.
func LoadAtlas(path string, cellTexels uint32) ([]uint8, mesh.Atlas, error) {
	pix, rect, err := loadImage(path)
	if err != nil {
		return nil, mesh.Atlas{}, errors.Wrapf(err, "load atlas %s", path)
	}
	if rect.Dx() != rect.Dy() {
		return nil, mesh.Atlas{}, errors.Errorf("atlas %s is %dx%d, not square", path, rect.Dx(), rect.Dy())
	}
	atlas, err := mesh.NewAtlas(uint32(rect.Dx()), cellTexels)
	if err != nil {
		return nil, mesh.Atlas{}, errors.Wrapf(err, "atlas %s", path)
	}
	return pix, atlas, nil
}
