/*
Package session implements the Session State Store and persistence orchestration.

A Manager owns the path from a stored record to a valid in-memory SessionState:
it loads and repairs records, persists after every transaction without ever
failing the caller, and resets sessions. It also serializes transactions per
session, locally with reference-counted mutexes and, optionally, across replicas
with a DistributedLocker.
*/
package session
