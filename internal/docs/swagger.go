package docs

// @title MailMaster API
// @version 1.0
// @description Newsletter management API. Users own newsletters, collect subscribers and send campaigns to them.

// @contact.name MailMaster API Support
// @contact.email support@mailmaster.local

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter the token with the `Bearer ` prefix, e.g. "Bearer 1|abcde12345".

// @tag.name auth
// @tag.description Registration, login and personal access tokens

// @tag.name users
// @tag.description User directory

// @tag.name newsletters
// @tag.description Newsletter management and subscriptions

// @tag.name subscribers
// @tag.description Subscriber records across newsletters

// @tag.name campaigns
// @tag.description Campaign drafting, scheduling and delivery

// @tag.name public
// @tag.description Endpoints linked from emails
