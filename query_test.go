package stage

import (
	"testing"
)

// TestQueryFiltering tests the basic query filtering capabilities
func TestQueryFiltering(t *testing.T) {
	type nodeSetup struct {
		values []ComponentValue
		count  int
	}
	pos := With(posComp, Position{})
	vel := With(velComp, Velocity{})
	health := With(healthComp, Health{})

	tests := []struct {
		name            string
		setups          []nodeSetup
		build           func(q Query) QueryNode
		expectedMatches int
	}{
		{
			name: "And query matches exact",
			setups: []nodeSetup{
				{[]ComponentValue{pos, vel}, 5},
				{[]ComponentValue{pos}, 10},
				{[]ComponentValue{vel}, 15},
			},
			build:           func(q Query) QueryNode { return q.And(posComp, velComp) },
			expectedMatches: 5,
		},
		{
			name: "Or query matches either",
			setups: []nodeSetup{
				{[]ComponentValue{pos, vel}, 5},
				{[]ComponentValue{pos}, 10},
				{[]ComponentValue{vel}, 15},
				{[]ComponentValue{health}, 3},
			},
			build:           func(q Query) QueryNode { return q.Or(posComp, velComp) },
			expectedMatches: 30,
		},
		{
			name: "Not query excludes",
			setups: []nodeSetup{
				{[]ComponentValue{pos, vel}, 5},
				{[]ComponentValue{pos}, 10},
				{[]ComponentValue{vel}, 15},
				{[]ComponentValue{health}, 20},
			},
			build:           func(q Query) QueryNode { return q.Not(velComp) },
			expectedMatches: 30,
		},
		{
			name: "Nested query",
			setups: []nodeSetup{
				{[]ComponentValue{pos, vel}, 5},
				{[]ComponentValue{pos, health}, 7},
				{[]ComponentValue{pos, vel, health}, 2},
				{[]ComponentValue{pos}, 11},
			},
			build: func(q Query) QueryNode {
				return q.And(posComp, q.Or(velComp, healthComp), q.Not(q.And(velComp, healthComp)))
			},
			expectedMatches: 12,
		},
		{
			name: "Built-in components",
			setups: []nodeSetup{
				{[]ComponentValue{With(LightComponent, MakePointLight(1, White, White))}, 4},
				{nil, 6},
			},
			build:           func(q Query) QueryNode { return q.And(TransformComponent, LightComponent) },
			expectedMatches: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene := Factory.NewScene(nil)
			for _, setup := range tt.setups {
				createNodes(t, scene, setup.count, setup.values...)
			}
			query := Factory.NewQuery()
			node := tt.build(query)
			cursor := Factory.NewCursor(node, scene)

			matches := 0
			for cursor.Next() {
				matches++
			}
			if matches != tt.expectedMatches {
				t.Errorf("Got %d matches, expected %d", matches, tt.expectedMatches)
			}
			if total := cursor.TotalMatched(); total != tt.expectedMatches {
				t.Errorf("TotalMatched = %d, expected %d", total, tt.expectedMatches)
			}
		})
	}
}

// TestCursorSkipsPending tests that nodes marked for destruction are not
// visited
func TestCursorSkipsPending(t *testing.T) {
	scene := Factory.NewScene(nil)
	refs := createNodes(t, scene, 6, With(posComp, Position{}))
	scene.DestroyNode(refs[1])
	scene.DestroyNode(refs[4])

	query := Factory.NewQuery()
	cursor := Factory.NewCursor(query.And(posComp), scene)

	var visited []NodeRef
	for _, n := range cursor.Nodes() {
		visited = append(visited, n.Ref())
	}
	expected := []NodeRef{refs[0], refs[2], refs[3], refs[5]}
	if len(visited) != len(expected) {
		t.Fatalf("Visited %v, expected %v", visited, expected)
	}
	for i := range expected {
		if visited[i] != expected[i] {
			t.Errorf("Visit %d = %v, expected %v", i, visited[i], expected[i])
		}
	}
}

// TestCursorLocksScene tests that destroying nodes during a walk is deferred
// until the walk ends
func TestCursorLocksScene(t *testing.T) {
	scene := Factory.NewScene(nil)
	createNodes(t, scene, 5, With(healthComp, Health{Value: 1}))

	query := Factory.NewQuery()
	cursor := Factory.NewCursor(query.And(healthComp), scene)

	visited := 0
	for cursor.Next() {
		visited++
		if !scene.Locked() {
			t.Fatal("Scene should be locked during a walk")
		}
		scene.DestroyNode(cursor.Ref())
		if _, err := scene.Collect(); err == nil {
			t.Fatal("Collect should fail during a walk")
		}
		healthComp.GetFromCursor(cursor).Value++
	}
	if visited != 5 {
		t.Errorf("Visited %d nodes, expected 5", visited)
	}
	if scene.Locked() {
		t.Error("Scene still locked after the walk")
	}
	if scene.PendingCount() != 5 {
		t.Errorf("PendingCount = %d, expected 5", scene.PendingCount())
	}
	if n := scene.GarbageCollect(); n != 5 {
		t.Errorf("GarbageCollect = %d, expected 5", n)
	}
}

// TestCursorEarlyBreak tests that leaving a range loop releases the scene
func TestCursorEarlyBreak(t *testing.T) {
	scene := Factory.NewScene(nil)
	createNodes(t, scene, 3, With(posComp, Position{}))
	cursor := Factory.NewCursor(Factory.NewQuery().And(posComp), scene)

	for i := range cursor.Nodes() {
		if i == 1 {
			break
		}
	}
	if scene.Locked() {
		t.Error("Scene still locked after breaking out of the walk")
	}
}
