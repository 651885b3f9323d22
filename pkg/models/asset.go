/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import "fmt"

type AssetType string

const (
	AssetTypeFile AssetType = "file"
	AssetTypeURL  AssetType = "url"
)

// Asset points a driver at a model to load.
type Asset struct {
	Type AssetType `json:"type"`
	Path string    `json:"path,omitempty"`
	URL  string    `json:"url,omitempty"`
}

// FileAsset builds a file asset for path.
func FileAsset(path string) Asset {
	return Asset{Type: AssetTypeFile, Path: path}
}

func (a *Asset) Validate() error {
	switch a.Type {
	case AssetTypeFile:
		if a.Path == "" {
			return fmt.Errorf("%w: file asset without path", ErrInvalidAsset)
		}
	case AssetTypeURL:
		if a.URL == "" {
			return fmt.Errorf("%w: url asset without url", ErrInvalidAsset)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAsset, a.Type)
	}

	return nil
}
