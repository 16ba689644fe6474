// Package knowledge holds the explicit state object of a craftloop instance:
// the Knowledge Store (recipes), the Attempt Ledger, the DiscoveredSet, goal
// achievements and the RewardLedger.
//
// There is no package-level state. A State is created by New or Restore and
// owned by a single engine.Controller, which flushes its Delta to the store
// after every mutation step.
package knowledge
