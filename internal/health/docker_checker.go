package health

import (
	"context"
	"os"

	"github.com/felixgeelhaar/metaforge/internal/container"
	"github.com/felixgeelhaar/metaforge/internal/errors"
)

// Daemon reports whether the container daemon answers.
type Daemon interface {
	Available(ctx context.Context) error
}

// DockerChecker checks that the docker daemon is reachable.
type DockerChecker struct {
	daemon Daemon
}

// NewDockerChecker creates a daemon checker.
func NewDockerChecker(daemon Daemon) *DockerChecker {
	return &DockerChecker{daemon: daemon}
}

func (c *DockerChecker) Name() string {
	return "docker-daemon"
}

// Check is unhealthy when the daemon does not answer.
func (c *DockerChecker) Check(ctx context.Context) *Result {
	if err := c.daemon.Available(ctx); err != nil {
		r := Unhealthy("Docker daemon is not reachable").
			WithDetail("error", err.Error()).
			WithDetail("suggestion", "Start Docker Desktop or the Docker daemon")
		if code := errors.CodeOf(err); code != "" {
			r.WithDetail("code", string(code))
		}
		return r
	}
	return Healthy("Docker daemon is running")
}

// ImageChecker checks that the generation image is present locally.
type ImageChecker struct {
	runtime container.Runtime
	ref     string
}

// NewImageChecker creates an image checker; ref is only used for messages.
func NewImageChecker(rt container.Runtime, ref string) *ImageChecker {
	return &ImageChecker{runtime: rt, ref: ref}
}

func (c *ImageChecker) Name() string {
	return "container-image"
}

// Check is degraded when the image is missing since a run can build it.
func (c *ImageChecker) Check(ctx context.Context) *Result {
	exists, err := c.runtime.ImageExists(ctx)
	if err != nil {
		return Unhealthy("Cannot inspect image").
			WithDetail("image", c.ref).
			WithDetail("error", err.Error())
	}
	if !exists {
		return Degraded("Image not found locally").
			WithDetail("image", c.ref).
			WithDetail("suggestion", "Set docker.build_context or run 'docker build -t "+c.ref+" .'")
	}
	return Healthy("Image is available").WithDetail("image", c.ref)
}

// APIKeyEnv is the variable forwarded to the container.
const APIKeyEnv = "ANTHROPIC_API_KEY"

// APIKeyChecker checks that the API key is exported.
type APIKeyChecker struct {
	getenv func(string) string
}

// NewAPIKeyChecker creates a checker reading the process environment.
func NewAPIKeyChecker() *APIKeyChecker {
	return &APIKeyChecker{getenv: os.Getenv}
}

func (c *APIKeyChecker) Name() string {
	return "api-key"
}

// Check is degraded without a key: the container then scaffolds a
// placeholder project instead of generating one.
func (c *APIKeyChecker) Check(ctx context.Context) *Result {
	if c.getenv(APIKeyEnv) == "" {
		return Degraded(APIKeyEnv + " is not set").
			WithDetail("suggestion", "export "+APIKeyEnv+"=<your key>")
	}
	return Healthy(APIKeyEnv + " is set")
}
