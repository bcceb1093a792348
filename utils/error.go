package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrExceedsBalance rejects a payment larger than the invoice's remaining balance.
var ErrExceedsBalance = errors.New("the amount entered is more than the balance for the selected invoice")

// ErrImportFormat rejects a backup file that cannot be parsed; nothing is applied.
var ErrImportFormat = errors.New("import file is not a valid backup document")
