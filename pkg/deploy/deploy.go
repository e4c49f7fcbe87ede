package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"deckhand/pkg/command"
	"deckhand/pkg/config"

	"go.uber.org/zap"
)

// ManifestFileName is the generated manifest written next to the pipeline
// artifacts.
const ManifestFileName = "generated-k8s-manifest.yaml"

// DefaultRolloutTimeout bounds the kubectl rollout status wait.
const DefaultRolloutTimeout = 300 * time.Second

// CommandRunner executes external commands for the deploy stage.
type CommandRunner interface {
	Run(ctx context.Context, commandLine string, opts command.Options) command.Result
}

// Result is the structured outcome of the deploy stage.
type Result struct {
	Success       bool            `json:"success"`
	Error         string          `json:"error,omitempty"`
	Duration      float64         `json:"duration"`
	ManifestPath  string          `json:"manifest_path,omitempty"`
	ApplyResult   *command.Result `json:"apply_result,omitempty"`
	RolloutResult *command.Result `json:"rollout_result,omitempty"`
	HealthCheck   *HealthInfo     `json:"health_check,omitempty"`
}

// HealthInfo summarizes deployment readiness after the rollout.
type HealthInfo struct {
	Healthy           bool         `json:"healthy"`
	Status            string       `json:"status"`
	ReadyReplicas     int          `json:"ready_replicas"`
	DesiredReplicas   int          `json:"desired_replicas"`
	AvailableReplicas int          `json:"available_replicas,omitempty"`
	UpdatedReplicas   int          `json:"updated_replicas,omitempty"`
	Service           *ServiceInfo `json:"service,omitempty"`
}

// ServiceInfo summarizes the exposed Kubernetes service.
type ServiceInfo struct {
	Type       string `json:"type,omitempty"`
	Ports      []any  `json:"ports,omitempty"`
	ExternalIP []any  `json:"external_ip,omitempty"`
}

// Runner generates Kubernetes manifests and drives kubectl through the
// command runner. OutputDir is where the manifest file is written.
type Runner struct {
	commands  CommandRunner
	logger    *zap.SugaredLogger
	OutputDir string
}

func NewRunner(commands CommandRunner, logger *zap.SugaredLogger) *Runner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Runner{commands: commands, logger: logger, OutputDir: "."}
}

// Run executes the deploy stage. Manifest generation, validation, and
// kubectl apply failures fail the stage; a failed rollout wait is reported
// in the result but leaves the health probe to tell the real story.
func (r *Runner) Run(ctx context.Context, cfg *config.ResolvedConfig) *Result {
	start := time.Now()
	r.logger.Infow("starting deployment",
		"app", cfg.App.Name,
		"environment", cfg.Deployment.Environment,
		"namespace", cfg.Deployment.Namespace)

	content, err := renderManifest(cfg)
	if err != nil {
		return failure(start, err.Error())
	}
	if err := validateManifest(content); err != nil {
		return failure(start, err.Error())
	}

	manifestPath := filepath.Join(r.OutputDir, ManifestFileName)
	if err := os.WriteFile(manifestPath, []byte(content), 0644); err != nil {
		return failure(start, fmt.Sprintf("failed to write manifest: %v", err))
	}
	r.logger.Infow("generated manifest", "path", manifestPath)

	namespace := cfg.Deployment.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}

	applyResult := r.commands.Run(ctx,
		fmt.Sprintf("kubectl apply -f %s --namespace=%s", manifestPath, namespace),
		command.Options{})
	if !applyResult.Success {
		res := failure(start, fmt.Sprintf("failed to apply manifests: %s", applyResult.Stderr))
		res.ManifestPath = manifestPath
		res.ApplyResult = &applyResult
		return res
	}

	rolloutResult := r.waitForRollout(ctx, cfg, namespace)
	health := r.verifyHealth(ctx, cfg, namespace)

	duration := time.Since(start).Seconds()
	r.logger.Infow("deployment completed", "duration", duration, "healthy", health.Healthy)

	return &Result{
		Success:       true,
		Duration:      duration,
		ManifestPath:  manifestPath,
		ApplyResult:   &applyResult,
		RolloutResult: &rolloutResult,
		HealthCheck:   health,
	}
}

func (r *Runner) waitForRollout(ctx context.Context, cfg *config.ResolvedConfig, namespace string) command.Result {
	timeout := cfg.Deployment.RolloutTimeout
	if timeout <= 0 {
		timeout = int(DefaultRolloutTimeout.Seconds())
	}

	r.logger.Infow("waiting for rollout", "app", cfg.App.Name, "timeout_seconds", timeout)
	result := r.commands.Run(ctx,
		fmt.Sprintf("kubectl rollout status deployment/%s --namespace=%s --timeout=%ds",
			cfg.App.Name, namespace, timeout),
		command.Options{})

	if !result.Success {
		r.logger.Warnw("rollout status check failed", "stderr", result.Stderr)
		r.collectDebugInfo(ctx, cfg.App.Name, namespace)
	}
	return result
}

// collectDebugInfo logs deployment and pod details after a failed rollout.
func (r *Runner) collectDebugInfo(ctx context.Context, appName, namespace string) {
	describe := r.commands.Run(ctx,
		fmt.Sprintf("kubectl describe deployment/%s --namespace=%s", appName, namespace),
		command.Options{})
	if describe.Success {
		r.logger.Infow("deployment description", "output", describe.Stdout)
	}

	pods := r.commands.Run(ctx,
		fmt.Sprintf("kubectl get pods -l app=%s --namespace=%s -o wide", appName, namespace),
		command.Options{})
	if pods.Success {
		r.logger.Infow("pod status", "output", pods.Stdout)
	}
}

func (r *Runner) verifyHealth(ctx context.Context, cfg *config.ResolvedConfig, namespace string) *HealthInfo {
	desired := cfg.Deployment.Replicas
	if desired <= 0 {
		desired = defaultReplicas
	}
	health := &HealthInfo{
		Status:          "unknown",
		DesiredReplicas: desired,
	}

	status := r.commands.Run(ctx,
		fmt.Sprintf("kubectl get deployment/%s --namespace=%s -o json", cfg.App.Name, namespace),
		command.Options{})
	if status.Success {
		var deployment struct {
			Status struct {
				ReadyReplicas     int `json:"readyReplicas"`
				AvailableReplicas int `json:"availableReplicas"`
				UpdatedReplicas   int `json:"updatedReplicas"`
			} `json:"status"`
		}
		if err := json.Unmarshal([]byte(status.Stdout), &deployment); err != nil {
			r.logger.Warnw("failed to parse deployment status", "error", err)
		} else {
			health.ReadyReplicas = deployment.Status.ReadyReplicas
			health.AvailableReplicas = deployment.Status.AvailableReplicas
			health.UpdatedReplicas = deployment.Status.UpdatedReplicas
			health.Healthy = health.ReadyReplicas == health.DesiredReplicas && health.ReadyReplicas > 0
			if health.Healthy {
				health.Status = "healthy"
			} else {
				health.Status = "unhealthy"
			}
		}
	}

	service := r.commands.Run(ctx,
		fmt.Sprintf("kubectl get service/%s-service --namespace=%s -o json", cfg.App.Name, namespace),
		command.Options{})
	if service.Success {
		var svc struct {
			Spec struct {
				Type  string `json:"type"`
				Ports []any  `json:"ports"`
			} `json:"spec"`
			Status struct {
				LoadBalancer struct {
					Ingress []any `json:"ingress"`
				} `json:"loadBalancer"`
			} `json:"status"`
		}
		if err := json.Unmarshal([]byte(service.Stdout), &svc); err != nil {
			r.logger.Warnw("failed to parse service status", "error", err)
		} else {
			health.Service = &ServiceInfo{
				Type:       svc.Spec.Type,
				Ports:      svc.Spec.Ports,
				ExternalIP: svc.Status.LoadBalancer.Ingress,
			}
		}
	}

	if health.Healthy {
		r.logger.Infow("deployment is healthy",
			"ready", health.ReadyReplicas, "desired", health.DesiredReplicas)
	} else {
		r.logger.Warnw("deployment not fully ready",
			"ready", health.ReadyReplicas, "desired", health.DesiredReplicas)
	}
	return health
}

func failure(start time.Time, message string) *Result {
	return &Result{
		Success:  false,
		Error:    message,
		Duration: time.Since(start).Seconds(),
	}
}
