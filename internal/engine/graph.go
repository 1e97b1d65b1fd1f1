package engine

import (
	"fmt"
	"sort"

	"github.com/shaiso/Conductor/internal/domain"
)

// Graph — граф зависимостей задач runbook.
//
// Хранит прямых зависимых (task → dependents) и количество
// неразрешённых зависимостей (in-degree) для каждой задачи.
// Построение чисто и не трогает внешнее состояние.
type Graph struct {
	// Dependents — прямые зависимые: taskID → список ID задач,
	// у которых эта задача указана в depends_on.
	Dependents map[string][]string

	// InDegree — количество зависимостей каждой задачи.
	InDegree map[string]int

	// order — позиция задачи в исходной конфигурации.
	// Используется для детерминированного порядка внутри батча.
	order map[string]int
}

// BuildGraph строит граф зависимостей из списка задач.
//
// Ошибки:
//   - ErrDuplicateTaskID — два TaskSpec с одинаковым ID
//   - ErrUnknownDependency — depends_on ссылается на отсутствующую задачу
//   - ErrSelfDependency — задача зависит от самой себя
func BuildGraph(tasks []domain.TaskSpec) (*Graph, error) {
	g := &Graph{
		Dependents: make(map[string][]string, len(tasks)),
		InDegree:   make(map[string]int, len(tasks)),
		order:      make(map[string]int, len(tasks)),
	}

	// Первый проход: регистрируем узлы, проверяем уникальность ID.
	for i := range tasks {
		task := &tasks[i]
		if _, exists := g.InDegree[task.ID]; exists {
			return nil, NewValidationError(task.ID, "id",
				fmt.Sprintf("duplicate task ID: %s", task.ID), ErrDuplicateTaskID)
		}
		g.InDegree[task.ID] = 0
		g.Dependents[task.ID] = nil
		g.order[task.ID] = i
	}

	// Второй проход: связываем рёбра по depends_on.
	for i := range tasks {
		task := &tasks[i]
		for _, depID := range task.DependsOn {
			if depID == task.ID {
				return nil, NewValidationError(task.ID, "depends_on",
					"task depends on itself", ErrSelfDependency)
			}
			if _, exists := g.InDegree[depID]; !exists {
				return nil, NewValidationError(task.ID, "depends_on",
					fmt.Sprintf("depends on unknown task: %s", depID), ErrUnknownDependency)
			}
			g.Dependents[depID] = append(g.Dependents[depID], task.ID)
			g.InDegree[task.ID]++
		}
	}

	return g, nil
}

// Size возвращает количество задач в графе.
func (g *Graph) Size() int {
	return len(g.InDegree)
}

// Batches вычисляет послойный порядок выполнения (алгоритм Кана).
//
// Батч — максимальное множество задач с нулевым in-degree;
// задачи одного батча не зависят друг от друга ни прямо, ни
// транзитивно, что разрешает их параллельное выполнение.
//
// Возвращает ErrCyclicDependency, если фронтир опустел до того,
// как обработаны все задачи. Проверка выполняется один раз,
// до запуска какой-либо задачи.
func (g *Graph) Batches() ([][]string, error) {
	// Копируем in-degree, чтобы не модифицировать граф.
	inDegree := make(map[string]int, len(g.InDegree))
	for id, deg := range g.InDegree {
		inDegree[id] = deg
	}

	// Начальный фронтир — задачи без зависимостей.
	frontier := make([]string, 0)
	for id, deg := range inDegree {
		if deg == 0 {
			frontier = append(frontier, id)
		}
	}

	batches := make([][]string, 0)
	processed := 0

	for len(frontier) > 0 {
		g.sortByConfigOrder(frontier)
		batch := frontier
		batches = append(batches, batch)
		processed += len(batch)

		frontier = make([]string, 0)
		for _, id := range batch {
			for _, dependent := range g.Dependents[id] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					frontier = append(frontier, dependent)
				}
			}
		}
	}

	// Фронтир пуст, но задачи остались — цикл.
	if processed != len(g.InDegree) {
		return nil, ErrCyclicDependency
	}

	return batches, nil
}

// sortByConfigOrder упорядочивает задачи по позиции в конфигурации.
func (g *Graph) sortByConfigOrder(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		return g.order[ids[i]] < g.order[ids[j]]
	})
}
