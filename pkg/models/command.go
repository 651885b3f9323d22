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

// Command is a verb understood by drivers.
type Command string

const (
	CommandConnect    Command = "connect"
	CommandDisconnect Command = "disconnect"
	// CommandStart is a deprecated alias for CommandPrint.
	CommandStart     Command = "start"
	CommandPrint     Command = "print"
	CommandCancel    Command = "cancel"
	CommandPause     Command = "pause"
	CommandResume    Command = "resume"
	CommandStatus    Command = "status"
	CommandGetStatus Command = "getStatus"
	CommandExit      Command = "exit"
	CommandReset     Command = "reset"
	CommandCommand   Command = "command"
)

// Normalize maps deprecated aliases onto their current command.
func (c Command) Normalize() Command {
	if c == CommandStart {
		return CommandPrint
	}

	return c
}

// CommandParams carries the arguments of a command. The "command" key is
// reserved for the verb itself.
type CommandParams map[string]interface{}

// JobID returns the job_id parameter, if any.
func (p CommandParams) JobID() string {
	if p == nil {
		return ""
	}

	id, _ := p["job_id"].(string)

	return id
}

// With returns a copy of p carrying cmd under the "command" key.
func (p CommandParams) With(cmd Command) CommandParams {
	out := make(CommandParams, len(p)+1)
	for k, v := range p {
		out[k] = v
	}

	out["command"] = string(cmd)

	return out
}
