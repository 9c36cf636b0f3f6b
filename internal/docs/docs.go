// Package docs регистрирует OpenAPI-описание сервиса для gin-swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{.Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/api/payment/webhook": {
            "post": {"tags": ["payment"], "summary": "Вебхук Stripe checkout.session.completed",
                "parameters": [{"name": "Stripe-Signature", "in": "header", "required": true, "type": "string"}],
                "responses": {"200": {"description": "received"}, "400": {"description": "bad signature or payload"}, "500": {"description": "store failure, Stripe redelivers"}}}
        },
        "/api/orders": {
            "get": {"tags": ["orders"], "summary": "Заказы пользователя или поиск по sessionId", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "sessionId", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "order not found yet"}}}
        },
        "/api/orders/{id}": {
            "get": {"tags": ["orders"], "summary": "Заказ по ID", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "not found"}}}
        },
        "/api/returns": {
            "post": {"tags": ["returns"], "summary": "Заявка на возврат", "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "created"}, "400": {"description": "validation error or duplicateItems"}}},
            "get": {"tags": ["returns"], "summary": "Список заявок", "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/returns/{id}": {
            "get": {"tags": ["returns"], "summary": "Заявка на возврат", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}},
            "patch": {"tags": ["returns"], "summary": "approve или reject (админ)", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "refund exceeds remaining"}, "409": {"description": "not pending"}, "502": {"description": "processor error"}}}
        },
        "/api/returns/{id}/shipment": {
            "post": {"tags": ["returns"], "summary": "Обратная отправка", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "502": {"description": "carrier error"}}}
        },
        "/api/inventory/reservations": {
            "post": {"tags": ["inventory"], "summary": "Резерв варианта", "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "insufficient stock"}}}
        },
        "/api/inventory/{productId}": {
            "get": {"tags": ["inventory"], "summary": "Остатки товара",
                "parameters": [{"name": "productId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/shipping/rates": {
            "post": {"tags": ["shipping"], "summary": "Стоимость доставки",
                "responses": {"200": {"description": "OK"}, "502": {"description": "carrier error"}}}
        },
        "/api/admin/payments/{sessionId}/replay": {
            "post": {"tags": ["admin"], "summary": "Повтор события оплаты", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "sessionId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/admin/orders/{id}/shipment": {
            "post": {"tags": ["admin"], "summary": "Повтор запроса отправки", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/admin/reservations/release": {
            "post": {"tags": ["admin"], "summary": "Проход свипера резервов", "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/admin/inventory/{productId}": {
            "put": {"tags": ["admin"], "summary": "Корректировка остатков", "security": [{"BearerAuth": []}],
                "parameters": [{"name": "productId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Fulfillment Service API",
	Description:      "Оплата, резервы, отправки и возвраты",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
