package domain

import "go.trai.ch/zerr"

var (
	// ErrDuplicateProperty is returned when a property is redeclared with a conflicting type.
	ErrDuplicateProperty = zerr.New("property already declared")

	// ErrNoSuchProperty is returned when reading or setting an undeclared property.
	ErrNoSuchProperty = zerr.New("no such property")

	// ErrPropertyType is returned when a value cannot be coerced to the declared property type.
	ErrPropertyType = zerr.New("property type mismatch")

	// ErrTargetExists is returned when adding a target whose name is already taken in the session.
	ErrTargetExists = zerr.New("target already exists")

	// ErrTargetNotFound is returned when a requested target is not part of the session.
	ErrTargetNotFound = zerr.New("target not found")

	// ErrDuplicateDependency is returned when a target already has an edge to the same target.
	ErrDuplicateDependency = zerr.New("dependency already exists")

	// ErrSelfDependency is returned when a target is added as a dependency of itself.
	ErrSelfDependency = zerr.New("target cannot depend on itself")

	// ErrPartition is returned when a build set cannot be partitioned.
	ErrPartition = zerr.New("build set partition failed")

	// ErrDependencyNotExecuted is returned when executing an action whose
	// dependency actions have not reached a terminal state.
	ErrDependencyNotExecuted = zerr.New("dependent action not executed")

	// ErrAlreadyExecuted is returned when executing or skipping a non-pending action.
	ErrAlreadyExecuted = zerr.New("action already executed")

	// ErrActionNotFound is returned when a requested action is not part of the graph.
	ErrActionNotFound = zerr.New("action not found")

	// ErrNotBuildDirectory is returned when the cache record of a build
	// directory is missing or unreadable. Re-exporting fixes it.
	ErrNotBuildDirectory = zerr.New("not a build directory, run export first")

	// ErrBuildFailed is returned when one or more actions failed during execution.
	ErrBuildFailed = zerr.New("build execution failed")
)
