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
	"encoding/json"

	"github.com/zintix-labs/cascadelab/errs"
	"gopkg.in/yaml.v3"
)

func GetLevelSettingByYAML(data []byte) (*LevelSetting, error) {
	ls := &LevelSetting{}
	if err := yaml.Unmarshal(data, ls); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshall yaml")
	}

	// 設定檔初始化
	if err := ls.init(); err != nil {
		return nil, errs.Wrap(err, "level setting initialized err")
	}

	return ls, nil
}

func GetLevelSettingByJSON(data []byte) (*LevelSetting, error) {
	ls := &LevelSetting{}
	if err := json.Unmarshal(data, ls); err != nil {
		return nil, errs.Wrap(err, "can not unmarshall json byte")
	}

	if err := ls.init(); err != nil {
		return nil, errs.Wrap(err, "level setting initialized err")
	}

	return ls, nil
}

func GetEngineSettingByYAML(data []byte) (*EngineSetting, error) {
	es := &EngineSetting{}
	if err := yaml.Unmarshal(data, es); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshall yaml")
	}
	if err := es.init(); err != nil {
		return nil, errs.Wrap(err, "engine setting initialized err")
	}
	return es, nil
}

func GetEngineSettingByJSON(data []byte) (*EngineSetting, error) {
	es := &EngineSetting{}
	if err := json.Unmarshal(data, es); err != nil {
		return nil, errs.Wrap(err, "can not unmarshall json byte")
	}
	if err := es.init(); err != nil {
		return nil, errs.Wrap(err, "engine setting initialized err")
	}
	return es, nil
}
