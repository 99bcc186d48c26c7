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

package spec

import (
	"fmt"
	"slices"
	"strings"

	"github.com/zintix-labs/cascadelab/errs"
	"github.com/zintix-labs/cascadelab/sdk/board"
)

// LID 關卡編號（catalog 內唯一）
type LID uint32

// PredictorKey 補牌策略名稱，對應 Lab 內註冊的 builder。
type PredictorKey string

// DefaultPredictor 未指定 predictor 時使用的補牌策略
const DefaultPredictor PredictorKey = "weighted"

// LevelSetting 關卡設定檔。
//
// board 為 token 列（見 board.ParseCell）；省略時整個盤面由補牌器隨機填入，此時 width/height 必填。
// fixed 為補牌策略自訂參數，由 DecodeFixed 解成策略自己的型別。
type LevelSetting struct {
	LevelID      LID            `yaml:"level_id"       json:"level_id"`
	LevelName    string         `yaml:"level_name"     json:"level_name"`
	Predictor    PredictorKey   `yaml:"predictor"      json:"predictor"`
	Width        int            `yaml:"width"          json:"width"`
	Height       int            `yaml:"height"         json:"height"`
	MoveLimit    int            `yaml:"move_limit"     json:"move_limit"`
	TargetScore  int64          `yaml:"target_score"   json:"target_score"`
	Difficulty   float64        `yaml:"difficulty"     json:"difficulty"`
	Colors       int            `yaml:"colors"         json:"colors"`
	ColorWeights []int          `yaml:"color_weights"  json:"color_weights,omitempty"`
	Board        []string       `yaml:"board"          json:"board,omitempty"`
	Fixed        map[string]any `yaml:"fixed"          json:"fixed,omitempty"`
	cells        []board.LevelCell
	initFlag     bool
}

func (ls *LevelSetting) init() error {
	if ls.initFlag {
		return nil
	}
	ls.LevelName = strings.TrimSpace(ls.LevelName)
	if ls.LevelName == "" {
		return errs.NewFatal(fmt.Sprintf("level %d: level_name required", ls.LevelID))
	}
	if ls.Predictor == "" {
		ls.Predictor = DefaultPredictor
	}
	if len(ls.Board) == 0 {
		if ls.Width <= 0 || ls.Height <= 0 {
			return errs.NewFatal(fmt.Sprintf("level %d: width and height required without board", ls.LevelID))
		}
		ls.cells = make([]board.LevelCell, ls.Width*ls.Height)
		for i := range ls.cells {
			ls.cells[i].Random = true
		}
	} else {
		cells, w, h, err := board.ParseRows(ls.Board)
		if err != nil {
			return errs.Wrap(err, fmt.Sprintf("level %d: parse board", ls.LevelID))
		}
		if (ls.Width != 0 && ls.Width != w) || (ls.Height != 0 && ls.Height != h) {
			return errs.NewFatal(fmt.Sprintf("level %d: board is %dx%d but width/height say %dx%d", ls.LevelID, w, h, ls.Width, ls.Height))
		}
		ls.Width, ls.Height = w, h
		ls.cells = cells
	}
	if err := ls.ToLevel().Validate(); err != nil {
		return err
	}
	ls.initFlag = true
	return nil
}

// ToLevel 轉成核心使用的關卡輸入；每次回傳獨立的複本。
func (ls *LevelSetting) ToLevel() *board.Level {
	return &board.Level{
		ID:           int(ls.LevelID),
		Name:         ls.LevelName,
		Width:        ls.Width,
		Height:       ls.Height,
		Cells:        slices.Clone(ls.cells),
		MoveLimit:    ls.MoveLimit,
		TargetScore:  ls.TargetScore,
		Difficulty:   ls.Difficulty,
		Colors:       ls.Colors,
		ColorWeights: slices.Clone(ls.ColorWeights),
	}
}
