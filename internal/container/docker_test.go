package container

import (
	"reflect"
	"testing"

	"github.com/felixgeelhaar/metaforge/internal/errors"
	"github.com/felixgeelhaar/metaforge/internal/log"
)

func TestBuildRunArgs(t *testing.T) {
	tests := []struct {
		name string
		spec RunSpec
		user string
		want []string
	}{
		{
			name: "idle container",
			spec: RunSpec{WorkspacePath: "/ws", OutputPath: "/ws/output"},
			want: []string{
				"run", "--detach",
				"--network", "bridge",
				"-v", "/ws:/workspace:rw", "-v", "/ws/output:/workspace/output:rw", "-w", "/workspace",
				"-e", "CLAUDE_CODE_OUTPUT=/workspace/output", "-e", "CLAUDE_CODE_WORKSPACE=/workspace",
				"metaclaude:latest", "sh", "-c", "tail -f /dev/null",
			},
		},
		{
			name: "named with env and command",
			user: "metaclaude",
			spec: RunSpec{
				Name:          "metaforge-run",
				WorkspacePath: "/ws",
				OutputPath:    "/out",
				Env:           map[string]string{"CLAUDE_MODEL": "sonnet", "ANTHROPIC_API_KEY": "k"},
				Command:       "bash startup.sh",
			},
			want: []string{
				"run", "--detach",
				"--name", "metaforge-run",
				"--network", "bridge",
				"--user", "metaclaude",
				"-v", "/ws:/workspace:rw", "-v", "/out:/workspace/output:rw", "-w", "/workspace",
				"-e", "ANTHROPIC_API_KEY=k", "-e", "CLAUDE_CODE_OUTPUT=/workspace/output",
				"-e", "CLAUDE_CODE_WORKSPACE=/workspace", "-e", "CLAUDE_MODEL=sonnet",
				"metaclaude:latest", "sh", "-c", "bash startup.sh",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildRunArgs("metaclaude:latest", tt.user, "bridge", tt.spec)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("buildRunArgs() =\n%v\nwant\n%v", got, tt.want)
			}
		})
	}
}

func TestBuildExecArgs(t *testing.T) {
	got := buildExecArgs("abc", "metaclaude", "/workspace", []string{"ls", "-la"})
	want := []string{"exec", "--workdir", "/workspace", "--user", "metaclaude", "abc", "ls", "-la"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("buildExecArgs() = %v, want %v", got, want)
	}
}

func TestBuildImageArgs(t *testing.T) {
	got := buildImageArgs("metaclaude:latest", "./docker", true)
	want := []string{"build", "--tag", "metaclaude:latest", "--no-cache", "./docker"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("buildImageArgs() = %v, want %v", got, want)
	}
}

func TestNewDockerImageReference(t *testing.T) {
	tests := []struct {
		image   string
		want    string
		wantErr bool
	}{
		{image: "metaclaude", want: "metaclaude:latest"},
		{image: "metaclaude:v2", want: "metaclaude:v2"},
		{image: "ghcr.io/acme/metaclaude:1.0", want: "ghcr.io/acme/metaclaude:1.0"},
		{image: "", wantErr: true},
		{image: "UPPER:case", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.image, func(t *testing.T) {
			d, err := NewDocker(DockerConfig{Image: tt.image}, log.Nop())
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.image)
				}
				if errors.CodeOf(err) != errors.ErrCodeConfigInvalid {
					t.Errorf("expected CONFIG-001, got %s", errors.CodeOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.ImageRef() != tt.want {
				t.Errorf("ImageRef() = %q, want %q", d.ImageRef(), tt.want)
			}
		})
	}
}

func TestHandleShortID(t *testing.T) {
	if got := (Handle{ID: "0123456789abcdef"}).ShortID(); got != "0123456789ab" {
		t.Errorf("ShortID() = %q", got)
	}
	if got := (Handle{ID: "abc"}).ShortID(); got != "abc" {
		t.Errorf("ShortID() = %q", got)
	}
}
