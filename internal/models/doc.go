// Package models defines the core domain models for Susu.
//
// # Models
//
//   - Circle: a rotating savings group (ROSCA) with a fixed member list
//   - Member: one participant's state within a circle
//   - ContributionRecord / PayoutRecord: point-in-time payment facts
//   - CreditProfile: per-identity reputation counters and composite score
//   - PaymentRecord: one entry in a profile's capped payment history
//   - User: a registered account that can authenticate against the API
//
// # Design Principles
//
//  1. All monetary amounts are int64 in the settlement asset's smallest unit.
//     There is no floating point anywhere in the money path.
//  2. Identifiers are hex strings: circle IDs are 32 bytes (64 hex chars),
//     invite codes 16 bytes (32 hex chars), unique identity IDs 32 bytes.
//  3. Models carry no behavior; the circle and credit engines own all
//     transitions and keep the stored state invariant-consistent.
//  4. Timestamps are Unix seconds from a clock sampled once per operation.
package models
