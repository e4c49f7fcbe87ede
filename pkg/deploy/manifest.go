package deploy

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"

	"deckhand/pkg/config"
	"deckhand/pkg/docker"

	"gopkg.in/yaml.v3"
)

//go:embed templates/manifest.yaml.tmpl
var manifestTemplate string

// Manifest defaults, applied when the resolved config leaves a field unset.
const (
	defaultNamespace      = "default"
	defaultReplicas       = 1
	defaultServiceType    = "LoadBalancer"
	defaultServicePort    = 80
	defaultReadinessDelay = 10
	defaultLivenessDelay  = 30

	defaultRequestsMemory = "128Mi"
	defaultRequestsCPU    = "100m"
	defaultLimitsMemory   = "256Mi"
	defaultLimitsCPU      = "200m"
)

// manifestContext is the fully-defaulted data rendered into the manifest
// template.
type manifestContext struct {
	Name           string
	Framework      string
	Environment    string
	Namespace      string
	Replicas       int
	Image          string
	Port           int
	ReadinessDelay int
	LivenessDelay  int
	RequestsMemory string
	RequestsCPU    string
	LimitsMemory   string
	LimitsCPU      string
	ServiceType    string
	ServicePort    int
}

func newManifestContext(cfg *config.ResolvedConfig) manifestContext {
	mc := manifestContext{
		Name:           cfg.App.Name,
		Framework:      cfg.App.Framework,
		Environment:    cfg.Deployment.Environment,
		Namespace:      cfg.Deployment.Namespace,
		Replicas:       cfg.Deployment.Replicas,
		Image:          cfg.Docker.FullImage,
		Port:           cfg.Docker.Port,
		ReadinessDelay: defaultReadinessDelay,
		LivenessDelay:  defaultLivenessDelay,
		RequestsMemory: valueOr(cfg.Deployment.Resources.Requests.Memory, defaultRequestsMemory),
		RequestsCPU:    valueOr(cfg.Deployment.Resources.Requests.CPU, defaultRequestsCPU),
		LimitsMemory:   valueOr(cfg.Deployment.Resources.Limits.Memory, defaultLimitsMemory),
		LimitsCPU:      valueOr(cfg.Deployment.Resources.Limits.CPU, defaultLimitsCPU),
		ServiceType:    valueOr(cfg.Deployment.ServiceType, defaultServiceType),
		ServicePort:    defaultServicePort,
	}
	if mc.Namespace == "" {
		mc.Namespace = defaultNamespace
	}
	if mc.Replicas <= 0 {
		mc.Replicas = defaultReplicas
	}
	if mc.Port == 0 {
		mc.Port = docker.DefaultPort
	}
	if hc := cfg.Deployment.HealthChecks; hc != nil {
		if hc.Readiness.InitialDelay > 0 {
			mc.ReadinessDelay = hc.Readiness.InitialDelay
		}
		if hc.Liveness.InitialDelay > 0 {
			mc.LivenessDelay = hc.Liveness.InitialDelay
		}
	}
	if svc := cfg.Deployment.Service; svc != nil && svc.Port > 0 {
		mc.ServicePort = svc.Port
	}
	return mc
}

// renderManifest produces the Deployment and Service manifest documents.
func renderManifest(cfg *config.ResolvedConfig) (string, error) {
	tmpl, err := template.New("manifest").Parse(manifestTemplate)
	if err != nil {
		return "", fmt.Errorf("invalid manifest template: %w", err)
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, newManifestContext(cfg)); err != nil {
		return "", fmt.Errorf("failed to render manifest: %w", err)
	}
	return out.String(), nil
}

// validateManifest checks that every document in the manifest is parseable
// YAML.
func validateManifest(content string) error {
	decoder := yaml.NewDecoder(strings.NewReader(content))
	for {
		var doc any
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("invalid YAML syntax: %w", err)
		}
	}
}

func valueOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
