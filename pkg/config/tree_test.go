package config_test

import (
	"reflect"
	"testing"

	"deckhand/pkg/config"
)

func TestMergeOverrideWins(t *testing.T) {
	tests := []struct {
		name     string
		base     config.Tree
		override config.Tree
		expected config.Tree
	}{
		{
			name:     "scalar override",
			base:     config.Tree{"replicas": 1},
			override: config.Tree{"replicas": 3},
			expected: config.Tree{"replicas": 3},
		},
		{
			name:     "disjoint keys union",
			base:     config.Tree{"a": 1},
			override: config.Tree{"b": 2},
			expected: config.Tree{"a": 1, "b": 2},
		},
		{
			name: "nested merge keeps siblings",
			base: config.Tree{
				"deployment": config.Tree{"replicas": 1, "namespace": "default"},
			},
			override: config.Tree{
				"deployment": config.Tree{"replicas": 5},
			},
			expected: config.Tree{
				"deployment": config.Tree{"replicas": 5, "namespace": "default"},
			},
		},
		{
			name:     "shape mismatch replaces wholesale",
			base:     config.Tree{"service": config.Tree{"port": 80}},
			override: config.Tree{"service": "disabled"},
			expected: config.Tree{"service": "disabled"},
		},
		{
			name:     "map replaces scalar",
			base:     config.Tree{"service": "disabled"},
			override: config.Tree{"service": config.Tree{"port": 80}},
			expected: config.Tree{"service": config.Tree{"port": 80}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := config.Merge(tt.base, tt.override)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Merge mismatch:\nexpected %v\ngot      %v", tt.expected, got)
			}
		})
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	base := config.Tree{"deployment": config.Tree{"replicas": 1}}
	override := config.Tree{"deployment": config.Tree{"replicas": 3}}

	_ = config.Merge(base, override)

	if base.Child("deployment").String("namespace", "") != "" {
		t.Error("Merge mutated base")
	}
	if replicas := base.Child("deployment")["replicas"]; replicas != 1 {
		t.Errorf("Merge mutated base replicas: %v", replicas)
	}
}

func TestMergeLayersCompose(t *testing.T) {
	global := config.Tree{
		"docker":     config.Tree{"organization": "myorg"},
		"deployment": config.Tree{"replicas": 1},
	}
	defaults := config.Tree{
		"deployment": config.Tree{"replicas": 2, "service_type": "LoadBalancer"},
	}
	app := config.Tree{
		"deployment": config.Tree{"replicas": 4},
	}

	// (global <- defaults) <- app equals global <- (defaults <- app)
	left := config.Merge(config.Merge(global, defaults), app)
	right := config.Merge(global, config.Merge(defaults, app))

	if !reflect.DeepEqual(left, right) {
		t.Errorf("Layered merge not associative:\nleft  %v\nright %v", left, right)
	}
	if replicas := left.Child("deployment")["replicas"]; replicas != 4 {
		t.Errorf("Highest layer must win, got replicas=%v", replicas)
	}
	if left.Child("docker").String("organization", "") != "myorg" {
		t.Error("Base layer keys lost in merge")
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := config.Tree{"app": config.Tree{"name": "shop"}}
	clone := original.Clone()

	clone.Child("app")["name"] = "changed"

	if original.Child("app").String("name", "") != "shop" {
		t.Error("Clone shares nested maps with the original")
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"My_App", "my-app"},
		{"shop", "shop"},
		{"FRONT_END_APP", "front-end-app"},
	}

	for _, tt := range tests {
		if got := config.NormalizeName(tt.in); got != tt.expected {
			t.Errorf("NormalizeName(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}
