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

package stats

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// StatReportRender 報表輸出格式
type StatReportRender interface {
	Write(w io.Writer, r *StatReport) error
}

type renderFunc func(w io.Writer, r *StatReport) error

func (f renderFunc) Write(w io.Writer, r *StatReport) error { return f(w, r) }

// NewStatReportRender 依名稱取得渲染器：json / yaml(yml) / table（空字串同 table）。
func NewStatReportRender(name string) (StatReportRender, bool) {
	switch name {
	case "json":
		return renderFunc(writeJSON), true
	case "yaml", "yml":
		return renderFunc(writeYAML), true
	case "table", "":
		return renderFunc(writeTable), true
	default:
		return nil, false
	}
}

func writeJSON(w io.Writer, r *StatReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// writeTable 與 StdOut 相同，不含用時
func writeTable(w io.Writer, r *StatReport) error {
	k, m := r.fmtBasic()
	if _, err := io.WriteString(w, fmtTable(r.Summary.LevelName, k, m)); err != nil {
		return err
	}
	if r.Score == nil {
		return nil
	}
	_, err := io.WriteString(w, r.Score.table())
	return err
}

// writeYAML 分布欄位（bucket 標籤、計數、比例）都是一維純量陣列，
// 改成 flow style 讓同一個分布佔一行，方便與標籤對照；其餘維持 block。
func writeYAML(w io.Writer, r *StatReport) error {
	var node yaml.Node
	if err := node.Encode(r); err != nil {
		return err
	}
	flowScalarSeqs(&node)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(&node)
}

func flowScalarSeqs(n *yaml.Node) {
	if n == nil {
		return
	}
	for _, c := range n.Content {
		flowScalarSeqs(c)
	}
	if n.Kind != yaml.SequenceNode || len(n.Content) == 0 {
		return
	}
	for _, c := range n.Content {
		if c.Kind != yaml.ScalarNode {
			return
		}
	}
	n.Style = yaml.FlowStyle
}
