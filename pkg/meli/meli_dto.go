package meli

// Mercado Libre 开放平台的 JSON 结构
// 只建模我们实际读取的字段，其余内容以原始 JSON 快照形式入库

// Item 商品详情 GET /items/{id}
type Item struct {
	ID                string  `json:"id"`
	SiteID            string  `json:"site_id,omitempty"`
	Title             string  `json:"title"`
	Price             float64 `json:"price"`
	CurrencyID        string  `json:"currency_id,omitempty"`
	Status            string  `json:"status"`
	AvailableQuantity int     `json:"available_quantity"`
	SoldQuantity      int     `json:"sold_quantity"`
	CategoryID        string  `json:"category_id"`
	Permalink         string  `json:"permalink,omitempty"`
	SellerID          int64   `json:"seller_id,omitempty"`

	Pictures []ItemPicture `json:"pictures,omitempty"`
}

// ItemPicture 商品图片
type ItemPicture struct {
	ID        string `json:"id,omitempty"`
	URL       string `json:"url,omitempty"`
	SecureURL string `json:"secure_url,omitempty"`
}

// PictureURLs 图片地址列表 (https 优先)
func (i *Item) PictureURLs() []string {
	urls := make([]string, 0, len(i.Pictures))
	for _, p := range i.Pictures {
		if p.SecureURL != "" {
			urls = append(urls, p.SecureURL)
			continue
		}
		if p.URL != "" {
			urls = append(urls, p.URL)
		}
	}
	return urls
}

// ItemDescription 商品描述 GET /items/{id}/description
type ItemDescription struct {
	PlainText string `json:"plain_text,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Plain 返回可用的纯文本描述 (plain_text 优先)
func (d *ItemDescription) Plain() string {
	if d == nil {
		return ""
	}
	if d.PlainText != "" {
		return d.PlainText
	}
	return d.Text
}

// Product 商品目录 GET /products/{id}
// 一个 product 下挂若干真实 item
type Product struct {
	ID    string        `json:"id"`
	Items []ProductItem `json:"items"`
}

// ProductItem product 关联的 item 摘要
type ProductItem struct {
	ID string `json:"id"`
}

// Category 类目 GET /categories/{id} 与站点类目根列表
type Category struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	ChildrenCategories []Category `json:"children_categories,omitempty"`
}

// IsLeaf 是否叶子类目 (发布商品必须选叶子类目)
func (c *Category) IsLeaf() bool {
	return len(c.ChildrenCategories) == 0
}

// TokenResp OAuth Token 响应 POST /oauth/token
type TokenResp struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
	UserID       int64  `json:"user_id"`
	RefreshToken string `json:"refresh_token"`

	// 失败时的错误体
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// UserProfile 卖家信息 GET /users/me
type UserProfile struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname,omitempty"`
	Status   struct {
		SiteStatus string `json:"site_status,omitempty"`
	} `json:"status"`
}

// SearchResp 卖家在售列表 GET /users/{id}/items/search
type SearchResp struct {
	SellerID string   `json:"seller_id,omitempty"`
	Results  []string `json:"results"`
	Paging   struct {
		Total  int `json:"total"`
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	} `json:"paging"`
}

// APIError Meli 标准错误体
type APIError struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	Status    int    `json:"status,omitempty"`
	Code      string `json:"code,omitempty"`
	BlockedBy string `json:"blocked_by,omitempty"`
}

// Msg 取错误体里最有信息量的一段
func (e *APIError) Msg() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// IsPolicyBlocked PolicyAgent 访问策略拦截
// 部分网络环境下 Meli 会用 403 + PolicyAgent 拦截公开接口
func (e *APIError) IsPolicyBlocked() bool {
	return e != nil && (e.BlockedBy == "PolicyAgent" || e.Code == "PA_UNAUTHORIZED_RESULT_FROM_POLICIES")
}
