package container

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/felixgeelhaar/metaforge/internal/errors"
	"github.com/felixgeelhaar/metaforge/internal/log"
)

// DockerConfig configures the docker CLI runtime.
type DockerConfig struct {
	// Image is a full reference such as "metaclaude:latest".
	Image   string
	User    string
	Network string
	// Binary is the docker executable; empty selects "docker".
	Binary string
}

// Docker implements Runtime by shelling out to the docker CLI.
type Docker struct {
	ref     name.Reference
	user    string
	network string
	binary  string
	logger  *log.Logger
}

// NewDocker validates the image reference and returns a runtime.
func NewDocker(cfg DockerConfig, logger *log.Logger) (*Docker, error) {
	ref, err := ParseImage(cfg.Image)
	if err != nil {
		return nil, err
	}
	d := &Docker{
		ref:     ref,
		user:    cfg.User,
		network: cfg.Network,
		binary:  cfg.Binary,
		logger:  log.OrDefault(logger).WithComponent("docker"),
	}
	if d.network == "" {
		d.network = DefaultNetwork
	}
	if d.binary == "" {
		d.binary = "docker"
	}
	return d, nil
}

// ParseImage validates an image reference, defaulting the tag to latest.
func ParseImage(image string) (name.Reference, error) {
	if strings.TrimSpace(image) == "" {
		return nil, errors.NewConfigInvalidError("docker image name is empty")
	}
	ref, err := name.ParseReference(image, name.WithDefaultTag("latest"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid image reference %q", image), err).
			WithSuggestion("Use the form name[:tag], for example metaclaude:latest")
	}
	return ref, nil
}

// ImageRef returns the reference passed to docker commands.
func (d *Docker) ImageRef() string {
	return imageRef(d.ref)
}

// imageRef renders a reference the way the user would type it: images from
// the default registry are not prefixed with index.docker.io/library.
func imageRef(ref name.Reference) string {
	if ref.Context().RegistryStr() == name.DefaultRegistry {
		repo := strings.TrimPrefix(ref.Context().RepositoryStr(), "library/")
		if tag, ok := ref.(name.Tag); ok {
			return repo + ":" + tag.TagStr()
		}
		return repo + "@" + ref.Identifier()
	}
	return ref.Name()
}

// Available checks that the docker daemon answers.
func (d *Docker) Available(ctx context.Context) error {
	if _, err := d.output(ctx, "version", "--format", "{{.Server.Version}}"); err != nil {
		return errors.NewRuntimeUnavailableError(err)
	}
	return nil
}

// ImageExists reports whether the configured image is present locally.
func (d *Docker) ImageExists(ctx context.Context) (bool, error) {
	out, err := d.output(ctx, "image", "inspect", "--format", "{{.Id}}", d.ImageRef())
	if err != nil {
		if strings.Contains(err.Error(), "No such") || isExitStatus(err, 1) {
			return false, nil
		}
		return false, errors.Wrap(errors.ErrCodeRuntimeUnavailable, "docker image inspect failed", err)
	}
	return strings.TrimSpace(out) != "", nil
}

// BuildImage builds the configured image from contextPath.
func (d *Docker) BuildImage(ctx context.Context, contextPath string, noCache bool) (Image, error) {
	d.logger.Info("building image", "image", d.ImageRef(), "context", contextPath, "no_cache", noCache)
	start := time.Now()

	if _, err := d.output(ctx, buildImageArgs(d.ImageRef(), contextPath, noCache)...); err != nil {
		return Image{}, errors.Wrap(errors.ErrCodeRuntimeBuildFailed, "image build failed", err).
			WithSuggestion("Check the Dockerfile in " + contextPath).
			WithSuggestion("Retry with --no-cache")
	}

	id, _ := d.output(ctx, "image", "inspect", "--format", "{{.Id}}", d.ImageRef())
	d.logger.Info("image built", "image", d.ImageRef(), "duration", time.Since(start))
	return Image{Ref: d.ImageRef(), ID: strings.TrimSpace(id)}, nil
}

// Run starts a detached container with the workspace mounted.
func (d *Docker) Run(ctx context.Context, spec RunSpec) (Handle, error) {
	args := buildRunArgs(d.ImageRef(), d.user, d.network, spec)
	out, err := d.output(ctx, args...)
	if err != nil {
		return Handle{}, errors.Wrap(errors.ErrCodeRuntimeStartFailed, "container startup failed", err)
	}
	h := Handle{ID: strings.TrimSpace(out), Name: spec.Name}
	d.logger.Info("container started", "container", h.ShortID(), "name", h.Name)
	return h, nil
}

// Exec runs command in the container. A non-zero exit code is reported in
// the result, not as an error.
func (d *Docker) Exec(ctx context.Context, h Handle, command []string, workdir string) (ExecResult, error) {
	cmd := exec.CommandContext(ctx, d.binary, buildExecArgs(h.ID, d.user, workdir, command)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !stderrors.As(err, &exitErr) || ctx.Err() != nil {
			return ExecResult{}, errors.Wrap(errors.ErrCodeRuntimeExecFailed, "command execution failed", err)
		}
		return ExecResult{ExitCode: exitErr.ExitCode(), Output: out.String()}, nil
	}
	return ExecResult{Output: out.String()}, nil
}

// StreamLogs follows stdout and stderr of the container.
func (d *Docker) StreamLogs(ctx context.Context, h Handle) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(lines)

		pr, pw := io.Pipe()
		cmd := exec.CommandContext(ctx, d.binary, "logs", "--follow", h.ID)
		cmd.Stdout = pw
		cmd.Stderr = pw
		if err := cmd.Start(); err != nil {
			errc <- errors.Wrap(errors.ErrCodeRuntimeStreamFailed, "log monitoring failed", err)
			return
		}
		go func() {
			pw.CloseWithError(cmd.Wait())
		}()

		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimRight(scanner.Text(), "\r"):
			case <-ctx.Done():
				_ = pr.Close()
				errc <- ctx.Err()
				return
			}
		}
		if err := scanner.Err(); err != nil {
			if ctx.Err() != nil {
				errc <- ctx.Err()
				return
			}
			errc <- errors.Wrap(errors.ErrCodeRuntimeStreamFailed, "log monitoring failed", err)
		}
	}()

	return lines, errc
}

// Stop stops the container, killing it when the graceful stop fails.
func (d *Docker) Stop(ctx context.Context, h Handle, grace time.Duration) error {
	secs := strconv.Itoa(int(math.Ceil(grace.Seconds())))
	if _, err := d.output(ctx, "stop", "--time", secs, h.ID); err != nil {
		d.logger.Warn("graceful stop failed, killing container", "container", h.ShortID(), "error", err)
		if _, kerr := d.output(ctx, "kill", h.ID); kerr != nil {
			return errors.Wrap(errors.ErrCodeRuntimeExecFailed, "failed to kill container "+h.ShortID(), kerr)
		}
	}
	return nil
}

// Remove force-removes the container.
func (d *Docker) Remove(ctx context.Context, h Handle) error {
	if _, err := d.output(ctx, "rm", "--force", h.ID); err != nil {
		return errors.Wrap(errors.ErrCodeRuntimeExecFailed, "failed to remove container "+h.ShortID(), err)
	}
	return nil
}

// output runs a docker command and returns stdout. Errors carry stderr.
func (d *Docker) output(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, d.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	d.logger.Debug("docker", "args", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.String(), fmt.Errorf("docker %s: %w: %s", args[0], err, msg)
		}
		return stdout.String(), fmt.Errorf("docker %s: %w", args[0], err)
	}
	return stdout.String(), nil
}

func buildImageArgs(ref, contextPath string, noCache bool) []string {
	args := []string{"build", "--tag", ref}
	if noCache {
		args = append(args, "--no-cache")
	}
	return append(args, contextPath)
}

// buildRunArgs constructs the docker run arguments for a detached container
// with the workspace and output directories mounted.
func buildRunArgs(ref, user, network string, spec RunSpec) []string {
	args := []string{"run", "--detach"}

	if spec.Name != "" {
		args = append(args, "--name", spec.Name)
	}
	if network != "" {
		args = append(args, "--network", network)
	}
	if user != "" {
		args = append(args, "--user", user)
	}

	// Mounts
	args = append(args,
		"-v", fmt.Sprintf("%s:%s:rw", spec.WorkspacePath, WorkspaceMount),
		"-v", fmt.Sprintf("%s:%s:rw", spec.OutputPath, OutputMount),
		"-w", WorkspaceMount,
	)

	// Environment, sorted for stable argument lists
	env := make(map[string]string, len(spec.Env)+2)
	for k, v := range spec.Env {
		env[k] = v
	}
	env["CLAUDE_CODE_WORKSPACE"] = WorkspaceMount
	env["CLAUDE_CODE_OUTPUT"] = OutputMount
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", k+"="+env[k])
	}

	command := spec.Command
	if command == "" {
		command = IdleCommand
	}
	return append(args, ref, "sh", "-c", command)
}

func buildExecArgs(id, user, workdir string, command []string) []string {
	args := []string{"exec"}
	if workdir != "" {
		args = append(args, "--workdir", workdir)
	}
	if user != "" {
		args = append(args, "--user", user)
	}
	args = append(args, id)
	return append(args, command...)
}

func isExitStatus(err error, code int) bool {
	var exitErr *exec.ExitError
	return stderrors.As(err, &exitErr) && exitErr.ExitCode() == code
}
