// Package token implements the balance and stake ledger of the native token.
package token
