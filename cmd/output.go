package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v2"

	"metachain-devtest/core/model"
)

type outcomeSummary struct {
	Hash       string               `json:"hash" yaml:"hash"`
	Successful bool                 `json:"successful" yaml:"successful"`
	Extrinsic  string               `json:"extrinsic,omitempty" yaml:"extrinsic,omitempty"`
	Index      *int                 `json:"index,omitempty" yaml:"index,omitempty"`
	Error      *model.RegistryError `json:"error,omitempty" yaml:"error,omitempty"`
	Events     []string             `json:"events" yaml:"events"`
}

type blockSummary struct {
	Hash       string           `json:"hash" yaml:"hash"`
	DurationMs int64            `json:"durationMs" yaml:"durationMs"`
	Outcomes   []outcomeSummary `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
	Ethereum   *model.EthBlock  `json:"ethereum,omitempty" yaml:"ethereum,omitempty"`
}

func summarize(block model.SealedBlock, outcomes []*model.ExtrinsicOutcome) blockSummary {
	s := blockSummary{Hash: block.Hash, DurationMs: block.DurationMs()}
	for _, o := range outcomes {
		summary := outcomeSummary{Hash: o.Hash, Successful: o.Successful, Error: o.Error, Events: make([]string, 0, len(o.Events))}
		if o.Extrinsic != nil {
			index := o.Extrinsic.Index
			summary.Index = &index
			if o.Extrinsic.Section != "" {
				summary.Extrinsic = o.Extrinsic.Section + "." + o.Extrinsic.Method
			}
		}
		for _, ev := range o.Events {
			summary.Events = append(summary.Events, ev.Name())
		}
		s.Outcomes = append(s.Outcomes, summary)
	}
	return s
}

func write(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		b, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}
	return fmt.Errorf("unknown output format %q", format)
}
