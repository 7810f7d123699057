// Package auth provides accounts, sessions and route guards for the library.
//
// Students and admins sign in with an email (or username) and password.
// A successful login starts a server-side session stored in SQLite by scs;
// the browser only holds the session cookie.
//
// # Configuration
//
//	AUTH_SESSION_LIFETIME=24h        # Session duration
//	AUTH_BCRYPT_COST=10              # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true         # HTTPS-only cookies
//	AUTH_CSRF_ENABLED=true           # Require X-CSRF-Token on writes
//	AUTH_ALLOW_ADMIN_SIGNUP=false    # Let /api/signup create admins
//	AUTH_MAX_LOGIN_ATTEMPTS=5        # Failures before lockout
//
// # Usage
//
// Wire the session loader, then the user resolver, then guard routes:
//
//	router.Use(sessions.SessionLoadSave())
//	router.Use(authMiddleware.Handler())
//	api.GET("/my-books", authMiddleware.RequireAuth(), ...)
//	admin := api.Group("/admin", authMiddleware.RequireAdmin())
//
// Extract the user in handlers:
//
//	userID := auth.GetUserID(c) // 0 when anonymous
package auth
