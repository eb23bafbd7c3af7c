/*
Package domain contains the core domain models and rules for a Daydream session.

It defines the session state machine data (Steps and the cursor over them), the
invariants every reachable state must satisfy, the tolerant codec used to recover
persisted records, and the projection from state to a presentation-agnostic view.
This package is kept pure and free of I/O, following Hexagonal Architecture
principles.

# Key Entities

  - Step: one committed ideation turn (the chosen prompt and the options offered after it).
  - SessionState: the ordered steps, the cursor (CurrentStepIndex) and the completion flag.
  - ViewModel: what a front-end should display for a given state.
  - LifecycleHooks: observability callbacks fired by the transition controller.
*/
package domain
