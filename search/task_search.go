package search

import (
	"encoding/json"
	"fmt"
	"strings"

	"workhub/client/es"
	"workhub/domain"
	"workhub/domain/task"
	"workhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

var (
	TaskIndexName = "tasks"

	SearchTasksFunc = SearchTasks
	IndexTasksFunc  = IndexTasks
)

type TaskDocument struct {
	domain.Task
}

type TaskSearchQuery struct {
	Keyword    string
	Domain     domain.Domain
	Status     domain.TaskStatus
	AssigneeID string
}

type BatchActionError map[types.ID]error

func (e BatchActionError) Error() string {
	return fmt.Sprintf("%v", map[types.ID]error(e))
}

// InstallTaskIndexing registers the post-commit hook that mirrors task
// changes into the search index. Indexing is best-effort; a failed write
// only logs.
func InstallTaskIndexing() {
	task.TaskChangedFuncs = append(task.TaskChangedFuncs, func(t *domain.Task) {
		if err := IndexTasksFunc([]domain.Task{*t}); err != nil {
			logrus.Warnf("index task %d: %v", t.ID, err)
		}
	})
}

func IndexTasks(tasks []domain.Task) error {
	errs := BatchActionError{}
	sec := &session.Context{Identity: session.Identity{Name: "System"}}

	for _, t := range tasks {
		doc := TaskDocument{Task: t}
		if err := es.IndexFunc(TaskIndexName, doc.ID, doc, sec); err != nil {
			errs[doc.ID] = err
			logrus.Warnf("index task %d %s %s\n", doc.ID, doc.Title, err)
		} else {
			logrus.Infof("index task %d %s successfully\n", doc.ID, doc.Title)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func SearchTasks(q TaskSearchQuery, sec *session.Context) ([]domain.Task, error) {
	filters := make([]es.H, 0, 4)
	if q.Keyword != "" {
		filters = append(filters, es.H{"match": es.H{"title": es.H{"query": q.Keyword, "operator": "AND"}}})
	}
	if q.Domain != "" {
		filters = append(filters, es.H{"term": es.H{"domain": q.Domain}})
	}
	if q.Status != "" {
		filters = append(filters, es.H{"term": es.H{"status": q.Status}})
	}
	if q.AssigneeID != "" {
		filters = append(filters, es.H{"term": es.H{"assigneeId": q.AssigneeID}})
	}

	sorts := make([]es.H, 0, 1)
	sorts = append(sorts, es.H{"deadline": es.H{"order": "asc"}})

	root := es.H{"bool": es.H{"filter": filters}}
	r, err := es.SearchFunc(TaskIndexName, es.H{"size": 10000, "query": root, "sort": sorts}, sec)
	if err != nil {
		return nil, err
	}

	tasks := make([]domain.Task, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		t := domain.Task{}
		if err := json.NewDecoder(strings.NewReader(string(hit.Source))).Decode(&t); err != nil {
			return nil, fmt.Errorf(string(hit.Source))
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
