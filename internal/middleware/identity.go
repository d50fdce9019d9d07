package middleware

// identity.go turns the claims stored by JWTAuth into plain strings for
// handlers and for the rate limiter key.

import (
    "strconv"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// subject returns the "sub" claim as a string.  JSON numbers decode as
// float64, so numeric ids issued by the credential service are formatted
// without a fraction.
func subject(cl jwt.MapClaims) string {
    switch v := cl["sub"].(type) {
    case string:
        return v
    case float64:
        return strconv.FormatInt(int64(v), 10)
    }
    if v, ok := cl["user_id"].(string); ok {
        return v
    }
    return ""
}

// UserID returns the authenticated caller id, or "" when JWTAuth did not
// run for this route.
func UserID(c echo.Context) string {
    if s, ok := c.Get(CtxUserID).(string); ok {
        return s
    }
    return ""
}

// rateSubject is the user part of a rate limit key.  Anonymous callers
// share the "guest" bucket.
func rateSubject(c echo.Context) string {
    if id := UserID(c); id != "" {
        return id
    }
    return "guest"
}
