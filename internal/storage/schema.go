/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import "github.com/xeipuuv/gojsonschema"

// workspaceSchema describes the expected workspace document shape. It is
// advisory: deviations are logged, never fatal, because the normalizers
// repair whatever they can.
const workspaceSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "sessions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": {"type": "string"},
          "title": {"type": "string"},
          "messages": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "id": {"type": "string"},
                "role": {"enum": ["user", "assistant"]},
                "content": {"type": "string"},
                "status": {"type": "string"}
              }
            }
          },
          "canvas": {
            "type": "object",
            "properties": {
              "viewport": {
                "type": "object",
                "properties": {
                  "panX": {"type": "number"},
                  "panY": {"type": "number"},
                  "zoom": {"type": "number"}
                }
              },
              "items": {
                "type": "array",
                "items": {
                  "type": "object",
                  "properties": {
                    "id": {"type": "string"},
                    "type": {"enum": ["image", "video", "text"]},
                    "opacity": {"type": "number", "minimum": 0, "maximum": 1},
                    "width": {"type": "number"},
                    "height": {"type": "number"}
                  }
                }
              }
            }
          }
        }
      }
    },
    "activeSessionId": {"type": "string"},
    "openSessionIds": {"type": "array", "items": {"type": "string"}}
  }
}`

var compiledSchema = mustCompile(workspaceSchema)

func mustCompile(s string) *gojsonschema.Schema {
	sch, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic("workspace schema does not compile: " + err.Error())
	}
	return sch
}

// ValidateWorkspaceDoc checks a raw workspace document against the schema
// and returns human-readable deviations. An unparseable document yields one
// entry; the caller decides what to do, typically just log.
func ValidateWorkspaceDoc(raw []byte) []string {
	res, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return []string{"not a JSON document: " + err.Error()}
	}
	if res.Valid() {
		return nil
	}
	out := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		out = append(out, e.String())
	}
	return out
}
