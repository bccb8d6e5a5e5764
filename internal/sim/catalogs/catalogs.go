package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID     string `json:"id"`
	Solid  bool   `json:"solid"`
	Liquid bool   `json:"liquid,omitempty"`
}

func Load(configDir string) (*BlockCatalog, error) {
	return LoadBlocks(filepath.Join(configDir, "blocks.json"))
}

func LoadBlocks(path string) (*BlockCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("blocks.json: %w", err)
	}
	c, err := NewBlockCatalog(defs)
	if err != nil {
		return nil, fmt.Errorf("blocks.json: %w", err)
	}
	c.DefsDigest = sha256Hex(raw)
	return c, nil
}

// NewBlockCatalog builds the palette from defs. AIR must be present and always
// gets palette id 0; every other block is sorted by id.
func NewBlockCatalog(defs []BlockDef) (*BlockCatalog, error) {
	c := &BlockCatalog{Defs: map[string]BlockDef{}}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("empty id")
		}
		if _, dup := c.Defs[d.ID]; dup {
			return nil, fmt.Errorf("duplicate id %q", d.ID)
		}
		if d.Solid && d.Liquid {
			return nil, fmt.Errorf("%s: block cannot be both solid and liquid", d.ID)
		}
		c.Defs[d.ID] = d
	}
	if _, ok := c.Defs["AIR"]; !ok {
		return nil, fmt.Errorf("missing AIR")
	}

	ids := make([]string, 0, len(c.Defs))
	for id := range c.Defs {
		if id != "AIR" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	ids = append([]string{"AIR"}, ids...)

	c.Palette = ids
	c.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		c.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	c.PaletteDigest = sha256Hex(palJSON)
	return c, nil
}

func (c *BlockCatalog) Air() uint16 { return 0 }

// ID returns the palette id for name. Callers wiring generators use MustID.
func (c *BlockCatalog) ID(name string) (uint16, bool) {
	id, ok := c.Index[name]
	return id, ok
}

func (c *BlockCatalog) MustID(name string) uint16 {
	id, ok := c.Index[name]
	if !ok {
		panic(fmt.Sprintf("catalogs: unknown block %q", name))
	}
	return id
}

// Name returns the block id for a palette value. Unknown values map to "".
func (c *BlockCatalog) Name(id uint16) string {
	if int(id) >= len(c.Palette) {
		return ""
	}
	return c.Palette[id]
}

func (c *BlockCatalog) Def(id uint16) (BlockDef, bool) {
	d, ok := c.Defs[c.Name(id)]
	return d, ok
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
