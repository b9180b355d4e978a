// Package models defines the domain models shared by the receiptsplit client and server.
//
// # Models
//
//   - Expense: a receipt or manual entry split between its creator and participants
//   - Participant: a non-creator party owing a share of an expense
//   - ReceiptItem: one line of a scanned receipt
//   - Friend: an entry of the shared friends network used to pick participants
//   - User: a registered account; the email is the identity carried in tokens
//   - Notification: an event shown to a user (expense added, reminder, payment)
//
// # Identity
//
// Users are identified by email address. Expense.CreatorID and Participant.Email
// hold emails, and the subject claim of a bearer token is the same email.
//
// # Money
//
// All currency values are decimal.Decimal. They are encoded as JSON numbers and
// stored as decimal strings, so an amount read back equals the amount written.
package models
