// Package domain contains the core business entities, value objects, and
// domain logic of the application. It represents the heart of the system,
// independent of any specific infrastructure or delivery mechanism.
//
// The central entity is Task. Its Position field ranks the task within its
// owner's list; position.go holds the arithmetic that keeps those ranks dense.
package domain
