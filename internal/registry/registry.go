package registry

import (
	"fmt"
	"log"

	"github.com/p-hoffmann/trextest/internal/harness"
)

func init() {
	log.SetFlags(0)
}

var scenarios = make(map[string]*Scenario)

type Scenario struct {
	Key        string
	Name       string
	Summary    string
	Stages     map[string]*Stage
	StageOrder []string
}

type Stage struct {
	Name string
	Fn   StageFunc
}

type StageFunc func() *harness.Suite

func (s *Scenario) AddStage(key, name string, fn StageFunc) {
	if s.Stages == nil {
		s.Stages = make(map[string]*Stage)
	}

	s.Stages[key] = &Stage{Name: name, Fn: fn}
	s.StageOrder = append(s.StageOrder, key)
}

func (s *Scenario) GetStage(key string) (*Stage, error) {
	stage, exists := s.Stages[key]
	if !exists {
		return nil, fmt.Errorf("Stage %q not found for scenario %s.", key, s.Key)
	}

	return stage, nil
}

func (s *Scenario) Len() int {
	return len(s.StageOrder)
}

func (s *Scenario) Describe() string {
	stages := ""
	for i, key := range s.StageOrder {
		stages += fmt.Sprintf("%d. %s - %s\n", i+1, key, s.Stages[key].Name)
	}

	return fmt.Sprintf(`%s

%s

Stages:

%s
Run with: trextest run %s [stage]
`, s.Name, s.Summary, stages, s.Key)
}

func Register(key string, scenario *Scenario) {
	if len(scenario.Stages) == 0 {
		log.Fatalf("Cannot register empty scenario %s.", key)
	}

	scenario.Key = key
	scenarios[key] = scenario
}

func Get(key string) (*Scenario, error) {
	scenario, exists := scenarios[key]
	if !exists {
		return nil, fmt.Errorf("Scenario %s not found", key)
	}

	return scenario, nil
}

func All() map[string]*Scenario {
	return scenarios
}
