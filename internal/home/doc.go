// Package home implements the household model behind hearth.
//
// A family is identified by a non-secret name. Each family owns one climate
// and lighting status, a scene mode, an inventory of items and a notice board.
// Every operation is scoped to exactly one family; the family row is created
// with defaults the first time it is referenced.
package home
