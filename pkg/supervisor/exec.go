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

package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
	"github.com/carverauto/printfleet/pkg/rpc"
)

// ExecLauncher runs each driver in its own child process. The child gets the
// locator and the JSON encoded device as its last two arguments and speaks
// the rpc protocol on stdin/stdout. Its stderr is passed through.
type ExecLauncher struct {
	Binary string
	Args   []string
	Env    []string
	Log    logger.Logger
}

type execProcess struct {
	cmd       *exec.Cmd
	transport io.ReadWriteCloser
	done      chan struct{}
	err       error
	killOnce  sync.Once
}

func (l *ExecLauncher) Launch(_ context.Context, locator string, device models.DeviceData) (Process, error) {
	if l.Binary == "" {
		return nil, errBinaryRequired
	}

	deviceJSON, err := json.Marshal(device)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errLaunch, err)
	}

	// explicit pipes so that Wait never closes the parent's ends under the
	// rpc read loop
	childIn, parentOut, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errLaunch, err)
	}

	parentIn, childOut, err := os.Pipe()
	if err != nil {
		_ = childIn.Close()
		_ = parentOut.Close()

		return nil, fmt.Errorf("%w: %w", errLaunch, err)
	}

	args := append(append([]string{}, l.Args...), locator, string(deviceJSON))

	cmd := exec.Command(l.Binary, args...)
	cmd.Stdin = childIn
	cmd.Stdout = childOut
	cmd.Stderr = os.Stderr

	if len(l.Env) > 0 {
		cmd.Env = append(os.Environ(), l.Env...)
	}

	if err := cmd.Start(); err != nil {
		for _, f := range []*os.File{childIn, parentOut, parentIn, childOut} {
			_ = f.Close()
		}

		return nil, fmt.Errorf("%w: %w", errLaunch, err)
	}

	_ = childIn.Close()
	_ = childOut.Close()

	p := &execProcess{
		cmd:       cmd,
		transport: rpc.NewPipe(parentIn, parentOut),
		done:      make(chan struct{}),
	}

	if l.Log != nil {
		l.Log.Info().
			Str("locator", locator).
			Str("device", device.Key()).
			Int("pid", cmd.Process.Pid).
			Msg("Driver worker started")
	}

	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()

	return p, nil
}

func (p *execProcess) Transport() io.ReadWriteCloser { return p.transport }
func (p *execProcess) Done() <-chan struct{}         { return p.done }

func (p *execProcess) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

func (p *execProcess) Kill() error {
	var err error

	p.killOnce.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}

		err = p.cmd.Process.Kill()
	})

	return err
}
