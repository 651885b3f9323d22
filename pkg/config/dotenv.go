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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// DefaultDotEnv is read when LoadDotEnv is called without paths.
const DefaultDotEnv = ".env"

// LoadDotEnv populates the process environment from dotenv files. Variables
// already set win. A missing default file is not an error; an explicitly
// named one is.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		if _, err := os.Stat(DefaultDotEnv); errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		paths = []string{DefaultDotEnv}
	}

	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("load dotenv %v: %w", paths, err)
	}

	return nil
}
