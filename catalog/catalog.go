// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package catalog 關卡目錄：把一或多個 flat fs.FS 內的關卡設定檔（.yaml/.yml/.json）
// 索引成 id / name 兩種查詢，Freeze 之後只讀。
package catalog

import (
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/spec"
)

var (
	ErrDupID   = errs.NewFatal("duplicate level id")
	ErrDupName = errs.NewFatal("duplicate level name")
)

// Entry 一個已註冊的關卡：編號、名稱（小寫）與設定檔名。
type Entry struct {
	LID        spec.LID
	Name       string
	ConfigName string
}

// Summary 對外列舉用的關卡摘要。
type Summary struct {
	LID         spec.LID          `json:"level_id"`
	Name        string            `json:"name"`
	Predictor   spec.PredictorKey `json:"predictor"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Colors      int               `json:"colors"`
	MoveLimit   int               `json:"move_limit"`
	TargetScore int64             `json:"target_score"`
	Difficulty  float64           `json:"difficulty"`
}

// NewSummary 由已初始化的關卡設定產生摘要。
func NewSummary(ls *spec.LevelSetting) Summary {
	return Summary{
		LID:         ls.LevelID,
		Name:        ls.LevelName,
		Predictor:   ls.Predictor,
		Width:       ls.Width,
		Height:      ls.Height,
		Colors:      ls.Colors,
		MoveLimit:   ls.MoveLimit,
		TargetScore: ls.TargetScore,
		Difficulty:  ls.Difficulty,
	}
}

// Catalog 關卡目錄。Freeze 後不可再註冊。
type Catalog struct {
	byID   map[spec.LID]Entry
	byName map[string]Entry
	ids    []spec.LID // 遞增排序
	used   map[string]bool
	files  *sources
	frozen bool
}

func New(cfg ...fs.FS) (*Catalog, error) {
	files, err := newSources(cfg...)
	if err != nil {
		return nil, errs.Wrap(err, "can not create catalog")
	}
	return &Catalog{
		byID:   map[spec.LID]Entry{},
		byName: map[string]Entry{},
		used:   map[string]bool{},
		files:  files,
	}, nil
}

func nameKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register 整批註冊：任何一筆不合法（檔案不存在、id/name/設定檔重複）整批都不生效。
func (c *Catalog) Register(ents ...Entry) error {
	if c.frozen {
		return errs.NewWarn("can not register when catalog already frozen")
	}
	ids := map[spec.LID]bool{}
	names := map[string]bool{}
	cfgs := map[string]bool{}
	for i := range ents {
		e := &ents[i]
		e.Name = nameKey(e.Name)
		if e.Name == "" {
			return errs.NewFatal("level name required")
		}
		if err := validFileName(e.ConfigName); err != nil {
			return err
		}
		if _, ok := c.files.get(e.ConfigName); !ok {
			return errs.Fatalf("config file not found: %s", e.ConfigName)
		}
		if _, dup := c.byID[e.LID]; dup || ids[e.LID] {
			return ErrDupID
		}
		if _, dup := c.byName[e.Name]; dup || names[e.Name] {
			return ErrDupName
		}
		if c.used[e.ConfigName] || cfgs[e.ConfigName] {
			return errs.Fatalf("duplicate config name: %s", e.ConfigName)
		}
		ids[e.LID], names[e.Name], cfgs[e.ConfigName] = true, true, true
	}
	for _, e := range ents {
		c.used[e.ConfigName] = true
		c.byID[e.LID] = e
		c.byName[e.Name] = e
		c.ids = append(c.ids, e.LID)
	}
	slices.Sort(c.ids)
	return nil
}

// Scan 依檔名順序解析所有設定檔，回傳可直接交給 Register 的 Entry。
// check 可做額外檢查（例如補牌策略是否已註冊）；重複的 id / name 會附上兩個檔名。
func (c *Catalog) Scan(check func(*spec.LevelSetting) error) ([]Entry, error) {
	out := make([]Entry, 0, len(c.files.names))
	byID := map[spec.LID]string{}
	byName := map[string]string{}
	for _, file := range c.files.names {
		ls, err := c.parse(file)
		if err != nil {
			return nil, errs.Wrap(err, "parse level setting failed: "+file)
		}
		if prev, ok := byID[ls.LevelID]; ok {
			return nil, errs.Fatalf("duplicate level id: %d (config=%s and %s)", ls.LevelID, prev, file)
		}
		if _, ok := c.byID[ls.LevelID]; ok {
			return nil, errs.Fatalf("level id already registered: %d (config=%s)", ls.LevelID, file)
		}
		key := nameKey(ls.LevelName)
		if prev, ok := byName[key]; ok {
			return nil, errs.Fatalf("duplicate level name: %s (config=%s and %s)", key, prev, file)
		}
		if _, ok := c.byName[key]; ok {
			return nil, errs.Fatalf("level name already registered: %s (config=%s)", key, file)
		}
		if check != nil {
			if err := check(ls); err != nil {
				return nil, errs.Wrap(err, "config="+file)
			}
		}
		byID[ls.LevelID], byName[key] = file, file
		out = append(out, Entry{LID: ls.LevelID, Name: ls.LevelName, ConfigName: file})
	}
	if len(out) == 0 {
		return nil, errs.NewFatal("no config files found to register")
	}
	return out, nil
}

func (c *Catalog) GetByID(id spec.LID) (Entry, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// GetByName 名稱不分大小寫、忽略前後空白。
func (c *Catalog) GetByName(name string) (Entry, bool) {
	e, ok := c.byName[nameKey(name)]
	return e, ok
}

func (c *Catalog) IDs() []spec.LID {
	if len(c.ids) == 0 {
		return nil
	}
	return slices.Clone(c.ids)
}

// All 依 id 遞增。
func (c *Catalog) All() []Entry {
	out := make([]Entry, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.byID[id])
	}
	return out
}

// Files 目前索引到的設定檔名（已排序）。
func (c *Catalog) Files() []string {
	return slices.Clone(c.files.names)
}

func (c *Catalog) Freeze()        { c.frozen = true }
func (c *Catalog) IsFrozen() bool { return c.frozen }

// LevelSettingByID 每次都重新讀檔解析，回傳的設定由呼叫端獨占。
func (c *Catalog) LevelSettingByID(id spec.LID) (*spec.LevelSetting, error) {
	e, ok := c.GetByID(id)
	if !ok {
		return nil, errs.NewWarn("level id does not exist in catalog")
	}
	return c.parse(e.ConfigName)
}

// LevelSettingByName 名稱不分大小寫。
func (c *Catalog) LevelSettingByName(name string) (*spec.LevelSetting, error) {
	e, ok := c.GetByName(name)
	if !ok {
		return nil, errs.NewWarn("level name does not exist in catalog")
	}
	return c.parse(e.ConfigName)
}

func (c *Catalog) parse(file string) (*spec.LevelSetting, error) {
	src, ok := c.files.get(file)
	if !ok {
		return nil, errs.NewWarn("config file does not exist in catalog: " + file)
	}
	raw, err := fs.ReadFile(src, file)
	if err != nil {
		return nil, errs.Wrap(err, "read config "+file)
	}
	return ParseLevelSettingByExt(file, raw)
}

// ParseLevelSettingByExt 依副檔名選擇 YAML 或 JSON 解碼。
func ParseLevelSettingByExt(filename string, raw []byte) (*spec.LevelSetting, error) {
	switch configExt(filename) {
	case ".yaml", ".yml":
		return spec.GetLevelSettingByYAML(raw)
	case ".json":
		return spec.GetLevelSettingByJSON(raw)
	default:
		return nil, errs.Fatalf("unsupported config format: %q", filename)
	}
}

func configExt(file string) string {
	return strings.ToLower(path.Ext(file))
}

func isConfig(file string) bool {
	switch configExt(file) {
	case ".yaml", ".yml", ".json":
		return !strings.HasPrefix(file, ".")
	}
	return false
}

// validFileName 設定檔名只能是 basename，不以 . 開頭，副檔名為 yaml/yml/json。
func validFileName(file string) error {
	switch {
	case file == "":
		return errs.NewFatal("empty config filename")
	case strings.ContainsAny(file, `/\:`):
		return errs.Fatalf("invalid config filename: %q (must be a basename)", file)
	case !isConfig(file):
		return errs.Fatalf("invalid config filename: %q (.yaml/.yml/.json, no leading dot)", file)
	}
	return nil
}

// sources 多個 flat fs.FS 合併後的檔名索引；同名檔案出現在兩個來源直接失敗。
type sources struct {
	byName map[string]fs.FS
	names  []string
	n      int
}

func newSources(src ...fs.FS) (*sources, error) {
	if len(src) == 0 {
		return nil, errs.NewFatal("no fs provided")
	}
	s := &sources{byName: map[string]fs.FS{}, n: len(src)}
	from := map[string]int{}
	for i, fsys := range src {
		if fsys == nil {
			return nil, errs.Fatalf("fs[%d] is nil", i)
		}
		err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p == "." {
				return nil
			}
			if d.IsDir() || strings.Contains(p, "/") {
				return errs.Fatalf("config FS must be flat (no subdirectories): %q", p)
			}
			if !isConfig(p) {
				return nil
			}
			if prev, ok := from[p]; ok {
				return errs.Fatalf("duplicate config %q in fs[%d] and fs[%d]", p, prev, i)
			}
			from[p] = i
			s.byName[p] = fsys
			s.names = append(s.names, p)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(s.names)
	return s, nil
}

func (s *sources) get(name string) (fs.FS, bool) {
	fsys, ok := s.byName[name]
	return fsys, ok
}
