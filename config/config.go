// Package config holds the TOML-decodable environment options for the
// store/resolver/retry/lock subsystems: small sections with
// `toml:"...,omitempty"` tags and an Overwrite method that lets a local
// config layer merge on top of a global one field by field.
package config

import (
	"time"

	"github.com/antgroup/gitvault/strengthen"
)

func overwriteString(a, b string) string {
	if len(b) != 0 {
		return b
	}
	return a
}

func overwriteInt(a, b int) int {
	if b != 0 {
		return b
	}
	return a
}

// PackStore configures the atomic packfile store (`{prefix, cache_size,
// cache_ttl_s}`).
type PackStore struct {
	Prefix      string         `toml:"prefix,omitempty"`
	CacheSize   strengthen.Size `toml:"cache_size,omitempty"`
	CacheTTLSec int            `toml:"cache_ttl_s,omitzero"`
}

func (c *PackStore) Overwrite(o *PackStore) {
	c.Prefix = overwriteString(c.Prefix, o.Prefix)
	if o.CacheSize.Bytes > 0 {
		c.CacheSize = o.CacheSize
	}
	c.CacheTTLSec = overwriteInt(c.CacheTTLSec, o.CacheTTLSec)
}

func (c PackStore) CacheTTL() time.Duration {
	if c.CacheTTLSec <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.CacheTTLSec) * time.Second
}

// Resolver configures the ref resolver (`{max_depth}`).
type Resolver struct {
	MaxDepth int `toml:"max_depth,omitzero"`
}

func (c *Resolver) Overwrite(o *Resolver) {
	c.MaxDepth = overwriteInt(c.MaxDepth, o.MaxDepth)
}

// Retry configures the CDC pipeline's retry policy (`{max_retries,
// initial_delay_ms, max_delay_ms, backoff_multiplier, jitter}`).
type Retry struct {
	MaxRetries        int     `toml:"max_retries,omitzero"`
	InitialDelayMS    int     `toml:"initial_delay_ms,omitzero"`
	MaxDelayMS        int     `toml:"max_delay_ms,omitzero"`
	BackoffMultiplier float64 `toml:"backoff_multiplier,omitzero"`
	Jitter            bool    `toml:"jitter,omitempty"`
}

func (c *Retry) Overwrite(o *Retry) {
	c.MaxRetries = overwriteInt(c.MaxRetries, o.MaxRetries)
	c.InitialDelayMS = overwriteInt(c.InitialDelayMS, o.InitialDelayMS)
	c.MaxDelayMS = overwriteInt(c.MaxDelayMS, o.MaxDelayMS)
	if o.BackoffMultiplier != 0 {
		c.BackoffMultiplier = o.BackoffMultiplier
	}
	c.Jitter = c.Jitter || o.Jitter
}

func (c Retry) InitialDelay() time.Duration { return time.Duration(c.InitialDelayMS) * time.Millisecond }
func (c Retry) MaxDelay() time.Duration     { return time.Duration(c.MaxDelayMS) * time.Millisecond }

// Lock configures distributed lock acquisition (`{timeout_ms,
// retry_interval_ms, ttl_ms, holder?, stale_threshold_ms, break_stale?}`).
type Lock struct {
	TimeoutMS        int    `toml:"timeout_ms,omitzero"`
	RetryIntervalMS  int    `toml:"retry_interval_ms,omitzero"`
	TTLMS            int    `toml:"ttl_ms,omitzero"`
	Holder           string `toml:"holder,omitempty"`
	StaleThresholdMS int    `toml:"stale_threshold_ms,omitzero"`
	BreakStale       bool   `toml:"break_stale,omitempty"`
}

func (c *Lock) Overwrite(o *Lock) {
	c.TimeoutMS = overwriteInt(c.TimeoutMS, o.TimeoutMS)
	c.RetryIntervalMS = overwriteInt(c.RetryIntervalMS, o.RetryIntervalMS)
	c.TTLMS = overwriteInt(c.TTLMS, o.TTLMS)
	c.Holder = overwriteString(c.Holder, o.Holder)
	c.StaleThresholdMS = overwriteInt(c.StaleThresholdMS, o.StaleThresholdMS)
	c.BreakStale = c.BreakStale || o.BreakStale
}

func (c Lock) Timeout() time.Duration       { return time.Duration(c.TimeoutMS) * time.Millisecond }
func (c Lock) RetryInterval() time.Duration { return time.Duration(c.RetryIntervalMS) * time.Millisecond }
func (c Lock) TTL() time.Duration           { return time.Duration(c.TTLMS) * time.Millisecond }
func (c Lock) StaleThreshold() time.Duration {
	return time.Duration(c.StaleThresholdMS) * time.Millisecond
}

// Pipeline configures the CDC pipeline (`{batch_size, flush_interval_ms,
// max_retries, parquet_compression, output_path, schema_version}`).
type Pipeline struct {
	BatchSize         int    `toml:"batch_size,omitzero"`
	FlushIntervalMS   int    `toml:"flush_interval_ms,omitzero"`
	MaxRetries        int    `toml:"max_retries,omitzero"`
	ParquetCompression string `toml:"parquet_compression,omitempty"` // snappy | gzip | none
	OutputPath        string `toml:"output_path,omitempty"`
	SchemaVersion     int    `toml:"schema_version,omitzero"`
}

func (c *Pipeline) Overwrite(o *Pipeline) {
	c.BatchSize = overwriteInt(c.BatchSize, o.BatchSize)
	c.FlushIntervalMS = overwriteInt(c.FlushIntervalMS, o.FlushIntervalMS)
	c.MaxRetries = overwriteInt(c.MaxRetries, o.MaxRetries)
	c.ParquetCompression = overwriteString(c.ParquetCompression, o.ParquetCompression)
	c.OutputPath = overwriteString(c.OutputPath, o.OutputPath)
	c.SchemaVersion = overwriteInt(c.SchemaVersion, o.SchemaVersion)
}

func (c Pipeline) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMS) * time.Millisecond
}

// Config is the full layered configuration document, decoded from TOML via
// github.com/BurntSushi/toml.
type Config struct {
	PackStore PackStore `toml:"packstore,omitempty"`
	Resolver  Resolver  `toml:"resolver,omitempty"`
	Retry     Retry     `toml:"retry,omitempty"`
	Lock      Lock      `toml:"lock,omitempty"`
	Pipeline  Pipeline  `toml:"pipeline,omitempty"`
}

// Overwrite merges o on top of c field by field, letting a local config
// layer override a global one without discarding unset fields.
func (c *Config) Overwrite(o *Config) {
	c.PackStore.Overwrite(&o.PackStore)
	c.Resolver.Overwrite(&o.Resolver)
	c.Retry.Overwrite(&o.Retry)
	c.Lock.Overwrite(&o.Lock)
	c.Pipeline.Overwrite(&o.Pipeline)
}
