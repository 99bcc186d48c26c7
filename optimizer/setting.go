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

// Package optimizer 以批次模擬調整關卡難度，讓 Policy 的過關率落在目標附近。
//
// 做法是對 difficulty 二分搜尋：過關率高於目標就加難，低於目標就放寬。
// 每次評估都用同一個 seed（common random numbers），讓相鄰兩點的差異只來自難度。
package optimizer

import (
	"io/fs"

	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/spec"
	"gopkg.in/yaml.v3"
)

// Setting 調優設定檔
type Setting struct {
	LevelID       spec.LID `yaml:"level_id"`
	TargetWinRate float64  `yaml:"target_win_rate"`
	Tolerance     float64  `yaml:"tolerance"`
	Games         int      `yaml:"games"`   // 每個 worker 每次評估的局數
	Workers       int      `yaml:"workers"` // 0 時為 1
	Policy        string   `yaml:"policy"`
	MinDifficulty float64  `yaml:"min_difficulty"`
	MaxDifficulty float64  `yaml:"max_difficulty"` // 0 時為 1
	MaxIter       int      `yaml:"max_iter"`       // 0 時為 12
	Seed          int64    `yaml:"seed"`
}

// LoadSetting 由 fsys 讀取 YAML 設定並檢查。
func LoadSetting(fsys fs.FS, name string) (*Setting, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errs.Wrap(err, "read optimizer setting")
	}
	return ParseSetting(raw)
}

func ParseSetting(raw []byte) (*Setting, error) {
	s := new(Setting)
	if err := yaml.Unmarshal(raw, s); err != nil {
		return nil, errs.NewWarn("parse optimizer setting: " + err.Error())
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Setting) init() error {
	if s.LevelID == 0 {
		return errs.NewWarn("level_id required")
	}
	if s.TargetWinRate <= 0 || s.TargetWinRate >= 1 {
		return errs.NewWarn("target_win_rate must be in (0, 1)")
	}
	if s.Tolerance <= 0 {
		s.Tolerance = 0.01
	}
	if s.Games < 1 {
		return errs.NewWarn("games must > 0")
	}
	if s.Workers <= 0 {
		s.Workers = 1
	}
	if s.MaxDifficulty == 0 {
		s.MaxDifficulty = 1
	}
	if s.MinDifficulty < 0 || s.MaxDifficulty > 1 || s.MinDifficulty >= s.MaxDifficulty {
		return errs.Warnf("difficulty range [%g, %g] must be inside [0, 1]", s.MinDifficulty, s.MaxDifficulty)
	}
	if s.MaxIter <= 0 {
		s.MaxIter = 12
	}
	return nil
}
