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

package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/printfleet/pkg/logger"
	"github.com/carverauto/printfleet/pkg/models"
	"github.com/gosnmp/gosnmp"
	"golang.org/x/sync/errgroup"
)

const (
	oidSysDescr = ".1.3.6.1.2.1.1.1.0"
	oidSysName  = ".1.3.6.1.2.1.1.5.0"
	// prtGeneralSerialNumber from the Printer MIB
	oidPrtSerialNumber = ".1.3.6.1.2.1.43.5.1.1.17.1"

	defaultSNMPPort     = 161
	defaultConcurrency  = 10
	defaultSNMPInterval = 30 * time.Second
	defaultSNMPTimeout  = 2 * time.Second
)

// SNMPVersion is the protocol version used to probe targets.
type SNMPVersion string

const (
	SNMPVersion1  SNMPVersion = "v1"
	SNMPVersion2c SNMPVersion = "v2c"
)

// SNMPRule classifies a device whose sysDescr contains Match.
type SNMPRule struct {
	Match string            `json:"match"`
	Type  models.DeviceType `json:"type"`
}

// SNMPConfig configures the network printer probe.
type SNMPConfig struct {
	Targets     []string        `json:"targets"`
	Port        uint16          `json:"port"`
	Version     SNMPVersion     `json:"version"`
	Community   string          `json:"community"`
	Timeout     models.Duration `json:"timeout"`
	Retries     int             `json:"retries"`
	Interval    models.Duration `json:"interval"`
	Concurrency int             `json:"concurrency"`
	Rules       []SNMPRule      `json:"rules"`
}

func (c *SNMPConfig) Validate() error {
	if len(c.Targets) == 0 {
		return errNoTargets
	}

	switch c.Version {
	case "":
		c.Version = SNMPVersion2c
	case SNMPVersion1, SNMPVersion2c:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedSNMPVersion, c.Version)
	}

	if c.Community == "" {
		c.Community = "public"
	}

	if c.Port == 0 {
		c.Port = defaultSNMPPort
	}

	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}

	return nil
}

// snmpGetter is the slice of a connected gosnmp client a probe needs.
type snmpGetter interface {
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	Close() error
}

type dialFunc func(target string) (snmpGetter, error)

// SNMP polls network targets and reports the printers among them.
type SNMP struct {
	cfg  SNMPConfig
	log  logger.Logger
	dial dialFunc
}

// NewSNMP validates cfg and returns a source probing its targets.
func NewSNMP(cfg SNMPConfig, log logger.Logger) (*SNMP, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &SNMP{cfg: cfg, log: log}
	s.dial = s.connect

	return s, nil
}

type gosnmpClient struct {
	*gosnmp.GoSNMP
}

func (c gosnmpClient) Close() error {
	if c.Conn == nil {
		return nil
	}

	return c.Conn.Close()
}

func (s *SNMP) connect(target string) (snmpGetter, error) {
	client := &gosnmp.GoSNMP{
		Target:             target,
		Port:               s.cfg.Port,
		Community:          s.cfg.Community,
		Timeout:            s.cfg.Timeout.Or(defaultSNMPTimeout),
		Retries:            s.cfg.Retries,
		MaxOids:            gosnmp.MaxOids,
		ExponentialTimeout: true,
	}

	switch s.cfg.Version {
	case SNMPVersion1:
		client.Version = gosnmp.Version1
	default:
		client.Version = gosnmp.Version2c
	}

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}

	return gosnmpClient{client}, nil
}

// Run probes every target each interval, sending Up for printers that
// appear and Down for ones that stop answering.
func (s *SNMP) Run(ctx context.Context, out chan<- DeviceEvent) error {
	known := make(map[string]models.DeviceData)

	ticker := time.NewTicker(s.cfg.Interval.Or(defaultSNMPInterval))
	defer ticker.Stop()

	for {
		found := s.sweep(ctx)

		for target, d := range found {
			if _, ok := known[target]; ok {
				continue
			}

			known[target] = d

			if !send(ctx, out, DeviceEvent{Kind: DeviceUp, Device: d}) {
				return nil
			}
		}

		for target, d := range known {
			if _, ok := found[target]; ok {
				continue
			}

			delete(known, target)

			if !send(ctx, out, DeviceEvent{Kind: DeviceDown, Device: d}) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func send(ctx context.Context, out chan<- DeviceEvent, ev DeviceEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// sweep probes all targets and returns the printers that answered.
func (s *SNMP) sweep(ctx context.Context) map[string]models.DeviceData {
	var (
		mu    sync.Mutex
		found = make(map[string]models.DeviceData)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, target := range s.cfg.Targets {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}

			d, err := s.probe(target)
			if err != nil {
				s.log.Debug().Err(err).Str("target", target).Msg("SNMP probe found no printer")

				return nil
			}

			mu.Lock()
			found[target] = d
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait()

	return found
}

func (s *SNMP) probe(target string) (models.DeviceData, error) {
	client, err := s.dial(target)
	if err != nil {
		return models.DeviceData{}, err
	}
	defer client.Close()

	result, err := client.Get([]string{oidSysDescr, oidSysName, oidPrtSerialNumber})
	if err != nil {
		return models.DeviceData{}, fmt.Errorf("SNMP Get failed: %w", err)
	}

	if result.Error != gosnmp.NoError {
		return models.DeviceData{}, fmt.Errorf("SNMP error: %s", result.Error)
	}

	var descr, name, serial string

	for _, v := range result.Variables {
		if v.Type != gosnmp.OctetString {
			continue
		}

		b, ok := v.Value.([]byte)
		if !ok {
			continue
		}

		switch v.Name {
		case oidSysDescr:
			descr = string(b)
		case oidSysName:
			name = string(b)
		case oidPrtSerialNumber:
			serial = string(b)
		}
	}

	if descr == "" && name == "" {
		return models.DeviceData{}, errNoSNMPData
	}

	deviceType, ok := s.classify(descr)
	if !ok {
		return models.DeviceData{}, fmt.Errorf("%w: %q", errNotAPrinter, descr)
	}

	d := models.DeviceData{
		ServiceName:  name,
		Identifier:   serial,
		Type:         deviceType,
		Address:      target,
		SerialNumber: serial,
	}

	if d.ServiceName == "" {
		d.ServiceName = target
	}

	if d.Identifier == "" {
		d.Identifier = target
	}

	return d, nil
}

func (s *SNMP) classify(descr string) (models.DeviceType, bool) {
	lower := strings.ToLower(descr)

	for _, r := range s.cfg.Rules {
		if r.Match != "" && strings.Contains(lower, strings.ToLower(r.Match)) {
			return r.Type, true
		}
	}

	return "", false
}
