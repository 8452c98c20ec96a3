package graph

import (
	"errors"
	"reflect"
	"testing"

	"github.com/R3E-Network/service_runtime/service"
)

func reg(serviceType string, priority int, requires, optional []string) service.Registration {
	return service.Registration{
		Type:     serviceType,
		Requires: requires,
		Optional: optional,
		Priority: priority,
	}
}

func TestBuild_RejectsUnregisteredRequired(t *testing.T) {
	_, err := Build([]service.Registration{
		reg("a", 0, []string{"missing"}, nil),
	})
	if err == nil {
		t.Fatal("Build accepted an unresolved required dependency")
	}
}

func TestBuild_ToleratesAbsentOptional(t *testing.T) {
	g, err := Build([]service.Registration{
		reg("a", 0, nil, []string{"missing"}),
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := g.Waves(); !reflect.DeepEqual(got, [][]string{{"a"}}) {
		t.Errorf("Waves() = %v, want [[a]]", got)
	}
}

func TestBuild_CyclePath(t *testing.T) {
	_, err := Build([]service.Registration{
		reg("a", 0, []string{"b"}, nil),
		reg("b", 0, []string{"a"}, nil),
	})

	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("Build error = %v, want *CycleError", err)
	}
	if !reflect.DeepEqual(cycle.Path, []string{"a", "b", "a"}) {
		t.Errorf("cycle path = %v, want [a b a]", cycle.Path)
	}
	if cycle.Error() != "circular dependency: a -> b -> a" {
		t.Errorf("Error() = %q", cycle.Error())
	}
}

func TestBuild_ThreeNodeCycle(t *testing.T) {
	_, err := Build([]service.Registration{
		reg("a", 0, []string{"c"}, nil),
		reg("b", 0, []string{"a"}, nil),
		reg("c", 0, []string{"b"}, nil),
	})

	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("Build error = %v, want *CycleError", err)
	}
	if len(cycle.Path) != 4 || cycle.Path[0] != cycle.Path[len(cycle.Path)-1] {
		t.Errorf("cycle path = %v, want a closed 3-cycle", cycle.Path)
	}
}

func TestBuild_OptionalEdgeNeverCreatesCycle(t *testing.T) {
	// a requires b; b optionally orders after a. Admitting the optional
	// edge would close a cycle, so it must be dropped and the graph
	// still builds.
	g, err := Build([]service.Registration{
		reg("a", 0, []string{"b"}, nil),
		reg("b", 0, nil, []string{"a"}),
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := [][]string{{"b"}, {"a"}}
	if got := g.Waves(); !reflect.DeepEqual(got, want) {
		t.Errorf("Waves() = %v, want %v", got, want)
	}
}

func TestWaves_PriorityOrdersWithinWave(t *testing.T) {
	// b and c both depend on a; c carries the higher priority so it
	// sorts first inside the second wave.
	g, err := Build([]service.Registration{
		reg("a", 0, nil, nil),
		reg("b", 10, []string{"a"}, nil),
		reg("c", 50, []string{"a"}, nil),
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := [][]string{{"a"}, {"c", "b"}}
	if got := g.Waves(); !reflect.DeepEqual(got, want) {
		t.Errorf("Waves() = %v, want %v", got, want)
	}
}

func TestWaves_RegistrationOrderBreaksPriorityTies(t *testing.T) {
	g, err := Build([]service.Registration{
		reg("b", 10, nil, nil),
		reg("a", 10, nil, nil),
		reg("c", 20, nil, nil),
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := [][]string{{"c", "b", "a"}}
	if got := g.Waves(); !reflect.DeepEqual(got, want) {
		t.Errorf("Waves() = %v, want %v", got, want)
	}
}

func TestWaves_OptionalEdgeOrders(t *testing.T) {
	// cache optionally orders after store: same wave without the hint,
	// separate waves with it.
	g, err := Build([]service.Registration{
		reg("store", 0, nil, nil),
		reg("cache", 0, nil, []string{"store"}),
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := [][]string{{"store"}, {"cache"}}
	if got := g.Waves(); !reflect.DeepEqual(got, want) {
		t.Errorf("Waves() = %v, want %v", got, want)
	}
}

func TestWaves_DiamondDependency(t *testing.T) {
	g, err := Build([]service.Registration{
		reg("base", 0, nil, nil),
		reg("left", 0, []string{"base"}, nil),
		reg("right", 0, []string{"base"}, nil),
		reg("top", 0, []string{"left", "right"}, nil),
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := [][]string{{"base"}, {"left", "right"}, {"top"}}
	if got := g.Waves(); !reflect.DeepEqual(got, want) {
		t.Errorf("Waves() = %v, want %v", got, want)
	}
}

func TestShutdownOrder(t *testing.T) {
	tests := []struct {
		name    string
		bringUp []string
		want    []string
	}{
		{"empty", nil, []string{}},
		{"single", []string{"a"}, []string{"a"}},
		{"reverses", []string{"a", "b", "c"}, []string{"c", "b", "a"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ShutdownOrder(tc.bringUp)
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("ShutdownOrder(%v) = %v, want %v", tc.bringUp, got, tc.want)
			}
		})
	}
}

func TestGraph_Accessors(t *testing.T) {
	g, err := Build([]service.Registration{
		reg("a", 0, nil, nil),
		reg("b", 0, []string{"a"}, nil),
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if got := g.Types(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Types() = %v", got)
	}
	if got := g.RequiredDeps("b"); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("RequiredDeps(b) = %v", got)
	}
	if got := g.Dependents("a"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("Dependents(a) = %v", got)
	}
	if g.Len() != 2 {
		t.Errorf("Len() = %d, want 2", g.Len())
	}
	if _, ok := g.Node("a"); !ok {
		t.Error("Node(a) not found")
	}
}
