package domain

import (
	"slices"
	"strings"
)

// Collection names one entity collection in the entity store.
type Collection string

const (
	CollectionProjects      Collection = "projects"
	CollectionDepartments   Collection = "departments"
	CollectionUsers         Collection = "users"
	CollectionTaskTypes     Collection = "taskTypes"
	CollectionTasks         Collection = "tasks"
	CollectionActivityLog   Collection = "activityLog"
	CollectionTaskTemplates Collection = "taskTemplates"
)

var collections = []Collection{
	CollectionProjects,
	CollectionDepartments,
	CollectionUsers,
	CollectionTaskTypes,
	CollectionTasks,
	CollectionActivityLog,
	CollectionTaskTemplates,
}

// Collections returns every collection in load order.
func Collections() []Collection {
	return slices.Clone(collections)
}

// ParseCollection resolves a collection name, ignoring surrounding whitespace.
func ParseCollection(raw string) (Collection, error) {
	c := Collection(strings.TrimSpace(raw))
	if !slices.Contains(collections, c) {
		return "", ErrInvalidCollection
	}
	return c, nil
}

func (c Collection) String() string {
	return string(c)
}
