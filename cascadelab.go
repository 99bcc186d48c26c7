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

// Package cascadelab 提供消除遊戲引擎的組裝入口與運行入口。
//
// Lab 把三個地基組在一起並提供建立 Machine 的入口：
//  1. Catalog：關卡目錄，定義有哪些關卡與各自的設定檔名稱（ConfigName）。
//  2. PredictorRegistry：補牌策略註冊表，依 LevelSetting.Predictor 建出 refill.Predictor。
//  3. PRNGFactory：亂數核心工廠，所有子流都由它依 seed 建出，保證可重現。
//
// 設定檔來源一律以 fs.FS 注入，Lab 本身不處理路徑。
// 引擎參數（重力、搜尋上限、計分表）由 spec.EngineSetting 提供，未指定時使用預設值。
//
// 典型使用情境：
//   - 後端服務：BuildRuntime 為每個關卡建一個 MachinePool，對外提供 start / move。
//   - 模擬器：NewSimulator 建立多台 Machine，以 Policy 自動遊玩並統計。
package cascadelab

import (
	"crypto/rand"
	"fmt"
	"io/fs"
	"math"
	"math/big"

	"github.com/zintix-labs/cascadelab/catalog"
	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/core"
	"github.com/zintix-labs/cascadelab/spec"
)

// Configs 把一或多個設定檔來源打包成 New() 需要的參數。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Predictors 把一或多個補牌策略註冊表打包成 New() 需要的參數；重複的 key 在 New() 時直接失敗。
func Predictors(regs ...*PredictorRegistry) []*PredictorRegistry {
	return regs
}

// Lab 組裝器與運行入口。
//
// 使用流程分兩階段：
//   - 註冊階段：建立 catalog、合併 registries、檢查重複與缺漏。
//   - 執行階段：Freeze 之後依關卡 ID 建立 Machine / Simulator / Runtime。
//
// 關卡 ID 的唯一性只保證在同一個 Lab 內。
//
//	lab, _ := cascadelab.NewAuto(core.Default(), cascadelab.Configs(cfgFS), cascadelab.Predictors(cascadelab.BuiltinPredictors()))
//	m, _ := lab.NewMachine(1, false)
//	gs, _ := m.Start(&dto.StartRequest{LevelID: 1, LevelName: "intro"})
type Lab struct {
	cat *catalog.Catalog
	reg *PredictorRegistry
	cf  core.PRNGFactory
	es  *spec.EngineSetting
	sum []catalog.Summary
}

// New 建立一個 Lab（註冊階段）。
//
//   - cf 不能為 nil。
//   - cfgs 至少一個。
//   - preds 至少一個；合併時重複 key 視為錯誤。
func New(cf core.PRNGFactory, cfgs []fs.FS, preds []*PredictorRegistry) (*Lab, error) {
	if cf == nil {
		return nil, errs.NewFatal("prng factory required")
	}
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	if len(preds) == 0 {
		return nil, errs.NewFatal("predictor registry required")
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	reg, err := MergePredictorRegistry(preds...)
	if err != nil {
		return nil, err
	}
	return &Lab{
		cat: cata,
		reg: reg,
		cf:  cf,
		es:  spec.DefaultEngineSetting(),
	}, nil
}

// NewAuto 掃描全部設定檔註冊並直接進入執行階段。
func NewAuto(cf core.PRNGFactory, cfgs []fs.FS, preds []*PredictorRegistry) (*Lab, error) {
	lab, err := New(cf, cfgs, preds)
	if err != nil {
		return nil, err
	}
	if err := lab.RegisterAll(); err != nil {
		return nil, err
	}
	lab.Freeze()
	return lab, nil
}

// SetEngineSetting 替換引擎參數；只允許在 Freeze 之前呼叫。
func (l *Lab) SetEngineSetting(es *spec.EngineSetting) error {
	if l.cat.IsFrozen() {
		return errs.NewFatal("engine setting must be set before freeze")
	}
	if es == nil {
		return errs.NewFatal("engine setting required")
	}
	l.es = es
	return nil
}

func (l *Lab) EngineSetting() *spec.EngineSetting {
	return l.es
}

func (l *Lab) Register(ents ...catalog.Entry) error {
	return l.cat.Register(ents...)
}

// RegisterAll 掃描所有設定檔來源（.yaml/.yml/.json），解析成 LevelSetting 後批次註冊。
//
//   - Fail-fast：任何一個檔案讀取或解析失敗都立刻回傳。
//   - 原子性：全部成功才呼叫一次 Register。
//   - 依檔名順序處理，行為可重現。
//   - 設定檔宣告的補牌策略必須已在 registry 內。
func (l *Lab) RegisterAll() error {
	ents, err := l.cat.Scan(func(ls *spec.LevelSetting) error {
		if !l.reg.IsExist(ls.Predictor) {
			return errs.NewFatal(fmt.Sprintf("predictor not registered: %s", ls.Predictor))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return l.cat.Register(ents...)
}

func (l *Lab) Freeze() {
	l.cat.Freeze()
}

func (l *Lab) EntryByID(id spec.LID) (catalog.Entry, bool) {
	return l.cat.GetByID(id)
}

func (l *Lab) EntryByName(name string) (catalog.Entry, bool) {
	return l.cat.GetByName(name)
}

func (l *Lab) IDs() []spec.LID {
	return l.cat.IDs()
}

func (l *Lab) All() []catalog.Entry {
	return l.cat.All()
}

// LevelSetting 取得已註冊關卡的設定。
func (l *Lab) LevelSetting(id spec.LID) (*spec.LevelSetting, error) {
	return l.cat.LevelSettingByID(id)
}

// Summary 列出全部關卡摘要（結果快取）。
func (l *Lab) Summary() ([]catalog.Summary, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	if l.sum != nil {
		return l.sum, nil
	}
	ids := l.cat.IDs()
	cs := make([]catalog.Summary, 0, len(ids))
	for _, id := range ids {
		ls, err := l.cat.LevelSettingByID(id)
		if err != nil {
			return nil, err
		}
		cs = append(cs, catalog.NewSummary(ls))
	}
	l.sum = cs
	return l.sum, nil
}

// NewMachine 依關卡 ID 建立 Machine，seed 由 crypto/rand 產生。
//
// isSim 為 true 時不收集事件（模擬熱路徑）。
func (l *Lab) NewMachine(id spec.LID, isSim bool) (*Machine, error) {
	seed, err := cryptoSeed()
	if err != nil {
		return nil, err
	}
	return l.NewMachineWithSeed(id, seed, isSim)
}

// NewMachineWithSeed 與 NewMachine 相同，但由呼叫端指定 seed；同一份設定 + 同一個 seed 產生同一串對局。
func (l *Lab) NewMachineWithSeed(id spec.LID, seed int64, isSim bool) (*Machine, error) {
	ls, err := l.levelSetting(id)
	if err != nil {
		return nil, err
	}
	return newMachineWithSeed(ls, l.es, l.reg, l.cf, seed, isSim)
}

// NewMachineByYAML 以自訂關卡設定建立 Machine；ID 與名稱必須對應到已註冊的關卡。
func (l *Lab) NewMachineByYAML(raw []byte, seed int64) (*Machine, error) {
	ls, err := l.customSetting(raw, spec.GetLevelSettingByYAML)
	if err != nil {
		return nil, err
	}
	return newMachineWithSeed(ls, l.es, l.reg, l.cf, seed, false)
}

func (l *Lab) NewMachineByJSON(raw []byte, seed int64) (*Machine, error) {
	ls, err := l.customSetting(raw, spec.GetLevelSettingByJSON)
	if err != nil {
		return nil, err
	}
	return newMachineWithSeed(ls, l.es, l.reg, l.cf, seed, false)
}

func (l *Lab) NewSimulator(id spec.LID) (*Simulator, error) {
	seed, err := cryptoSeed()
	if err != nil {
		return nil, err
	}
	return l.NewSimulatorWithSeed(id, seed)
}

func (l *Lab) NewSimulatorWithSeed(id spec.LID, seed int64) (*Simulator, error) {
	ls, err := l.levelSetting(id)
	if err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(ls, l.es, l.reg, l.cf, seed)
}

// NewDevSimulator Dev 模式用的單線模擬器，結果可由 seed 完整重現。
func (l *Lab) NewDevSimulator(id spec.LID, seed int64) (*DevSimulator, error) {
	sim, err := l.NewSimulatorWithSeed(id, seed)
	if err != nil {
		return nil, err
	}
	return newDevSimulator(sim, seed), nil
}

func (l *Lab) NewSimulatorByYAML(raw []byte, seed int64) (*Simulator, error) {
	ls, err := l.customSetting(raw, spec.GetLevelSettingByYAML)
	if err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(ls, l.es, l.reg, l.cf, seed)
}

func (l *Lab) NewSimulatorByJSON(raw []byte, seed int64) (*Simulator, error) {
	ls, err := l.customSetting(raw, spec.GetLevelSettingByJSON)
	if err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(ls, l.es, l.reg, l.cf, seed)
}

// BuildRuntime 進入執行階段：Freeze 後為每個關卡建一個 MachinePool（fail-fast）。
func (l *Lab) BuildRuntime(poolSize int) (*Runtime, error) {
	l.Freeze()

	ids := l.cat.IDs()
	if len(ids) == 0 {
		return nil, errs.NewFatal("no levels registered")
	}
	rt := &Runtime{
		lab:      l,
		pools:    make(map[spec.LID]*MachinePool, len(ids)),
		ids:      ids,
		done:     make(chan struct{}),
		poolSize: max(1, poolSize),
	}
	rt.reason.Store("")

	for _, id := range ids {
		ls, err := l.cat.LevelSettingByID(id)
		if err != nil {
			return nil, err
		}
		seed, err := cryptoSeed()
		if err != nil {
			return nil, err
		}
		mp, err := newMachinePool(rt.poolSize, ls, l.es, l.reg, l.cf, seed)
		if err != nil {
			return nil, err
		}
		mp.onFail = func(reason string) { rt.poolFailed(id, reason) }
		rt.pools[id] = mp
	}
	return rt, nil
}

// Replay 依關卡設定重播一份 Playthrough。
func (l *Lab) Replay(p *Playthrough) (*ReplayReport, error) {
	ls, err := l.levelSetting(p.LevelID)
	if err != nil {
		return nil, err
	}
	if ls.LevelName != p.LevelName {
		return nil, errs.NewWarn("level name is not matched")
	}
	return replay(p, ls, l.es, l.reg, l.cf)
}

func (l *Lab) levelSetting(id spec.LID) (*spec.LevelSetting, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	return l.cat.LevelSettingByID(id)
}

func (l *Lab) customSetting(raw []byte, parse func([]byte) (*spec.LevelSetting, error)) (*spec.LevelSetting, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ls, err := parse(raw)
	if err != nil {
		return nil, err
	}
	if err := l.validSetting(ls); err != nil {
		return nil, err
	}
	return ls, nil
}

func (l *Lab) validSetting(ls *spec.LevelSetting) error {
	ent, ok := l.cat.GetByID(ls.LevelID)
	if !ok {
		return errs.NewWarn("level id not exist")
	}
	ent2, ok := l.cat.GetByName(ls.LevelName)
	if !ok {
		return errs.NewWarn("level name not exist")
	}
	if ent.LID != ent2.LID {
		return errs.NewWarn("level id is not matched level name")
	}
	if !l.reg.IsExist(ls.Predictor) {
		return errs.NewWarn("predictor not exist")
	}
	return nil
}

func cryptoSeed() (int64, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, errs.Wrap(err, "new crypto seed error in go std lib")
	}
	return seed.Int64(), nil
}
