package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidateConfig checks the merged configuration and annotates it with a
// validation section. Validation never fails hard: problems are collected
// as errors and warnings, and the orchestrator decides whether to halt.
func (r *Resolver) ValidateConfig(cfg ResolvedConfig) ResolvedConfig {
	validation := Validation{
		Errors:   []string{},
		Warnings: []string{},
	}

	if cfg.App.Name == "" {
		validation.Errors = append(validation.Errors, "app.name is required")
	}
	if cfg.Docker.Repository == "" {
		validation.Errors = append(validation.Errors, "docker.repository is required")
	}

	requests := cfg.Deployment.Resources.Requests
	limits := cfg.Deployment.Resources.Limits

	if requests.CPU != "" && limits.CPU != "" {
		requested, errReq := ParseCPU(requests.CPU)
		limit, errLim := ParseCPU(limits.CPU)
		if errReq == nil && errLim == nil && requested > limit {
			validation.Warnings = append(validation.Warnings, "CPU request exceeds limit")
		}
	}
	if requests.Memory != "" && limits.Memory != "" {
		requested, errReq := ParseMemory(requests.Memory)
		limit, errLim := ParseMemory(limits.Memory)
		if errReq == nil && errLim == nil && requested > limit {
			validation.Warnings = append(validation.Warnings, "Memory request exceeds limit")
		}
	}

	validation.Valid = len(validation.Errors) == 0
	cfg.Validation = &validation

	if !validation.Valid {
		r.logger.Warnw("configuration is invalid", "errors", validation.Errors)
	}
	for _, warning := range validation.Warnings {
		r.logger.Warnw("configuration warning", "warning", warning)
	}

	return cfg
}

// ParseCPU converts a Kubernetes CPU quantity to millicores. Strings ending
// in "m" are already millicores; otherwise the value is whole cores.
func ParseCPU(cpu string) (float64, error) {
	if strings.HasSuffix(cpu, "m") {
		return strconv.ParseFloat(strings.TrimSuffix(cpu, "m"), 64)
	}
	cores, err := strconv.ParseFloat(cpu, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid CPU quantity %q: %w", cpu, err)
	}
	return cores * 1000, nil
}

// ParseMemory converts a Kubernetes memory quantity to bytes. Ki/Mi/Gi
// suffixes convert via powers of 1024; a bare number is raw bytes.
func ParseMemory(memory string) (int64, error) {
	upper := strings.ToUpper(memory)

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(upper, "KI"):
		multiplier = 1024
		upper = strings.TrimSuffix(upper, "KI")
	case strings.HasSuffix(upper, "MI"):
		multiplier = 1024 * 1024
		upper = strings.TrimSuffix(upper, "MI")
	case strings.HasSuffix(upper, "GI"):
		multiplier = 1024 * 1024 * 1024
		upper = strings.TrimSuffix(upper, "GI")
	}

	value, err := strconv.ParseInt(upper, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory quantity %q: %w", memory, err)
	}
	return value * multiplier, nil
}
