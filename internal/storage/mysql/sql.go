package mysql

const insertTrackingSQL = `
INSERT INTO trackings
  (id, subject, hotel_name, check_in, check_out, original_price, currency,
   room_type, free_cancellation, breakfast_included, active,
   last_status, last_best_price, last_provider, last_link, last_checked_at,
   created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateResultSQL = `
UPDATE trackings
SET last_status     = ?,
    last_best_price = ?,
    last_provider   = ?,
    last_link       = ?,
    last_checked_at = ?,
    updated_at      = CURRENT_TIMESTAMP
WHERE id = ?
`

const deactivateSQL = `
UPDATE trackings
SET active = 0, updated_at = CURRENT_TIMESTAMP
WHERE subject = ? AND id = ?
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const trackingColumns = `
  id, subject, hotel_name, check_in, check_out, original_price, currency,
  room_type, free_cancellation, breakfast_included, active,
  last_status, last_best_price, last_provider, last_link, last_checked_at,
  created_at, updated_at`

const getTrackingSQL = `SELECT` + trackingColumns + `
FROM trackings
WHERE subject = ? AND id = ?
`

const listBySubjectSQL = `SELECT` + trackingColumns + `
FROM trackings
WHERE subject = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`

// Never-checked records first, then the stalest.
const listActiveSQL = `SELECT` + trackingColumns + `
FROM trackings
WHERE active = 1 AND check_in >= CURRENT_DATE
ORDER BY last_checked_at IS NOT NULL, last_checked_at ASC
LIMIT ?
`
