package validators

const (
	optionalName = "omitempty,min=2,max=100"
	optionalID   = "omitempty," + objectID
)

var CreateCategory = Rules{"name": "required,min=3,max=32"}

var UpdateCategory = Rules{"name": "omitempty,min=3,max=32"}

var CreateSubCategory = Rules{
	"name":           "required,min=2,max=32",
	"parentCategory": "required," + objectID,
}

var UpdateSubCategory = Rules{
	"name":           "omitempty,min=2,max=32",
	"parentCategory": optionalID,
}

var CreateBrand = Rules{"name": "required,min=2,max=32"}

var UpdateBrand = Rules{"name": "omitempty,min=2,max=32"}

var CreateProduct = Rules{
	"name":               "required,min=3,max=100",
	"description":        "required,max=2000",
	"quantity":           "gte=0",
	"price":              "required,gt=0,lte=2000000",
	"priceAfterDiscount": "omitempty,gt=0",
	"category":           "required," + objectID,
	"subcategory":        optionalID,
	"brand":              optionalID,
	"imageCover":         "required",
	"averageRating":      "omitempty,gte=1,lte=5",
}

var UpdateProduct = Rules{
	"name":        "omitempty,min=3,max=100",
	"price":       "omitempty,gt=0,lte=2000000",
	"quantity":    "omitempty,gte=0",
	"category":    optionalID,
	"subcategory": optionalID,
	"brand":       optionalID,
}

var CreateReview = Rules{
	"title":   "omitempty,max=200",
	"rating":  "required,gte=1,lte=5",
	"user":    "required," + objectID,
	"product": "required," + objectID,
}

var UpdateReview = Rules{
	"title":  "omitempty,max=200",
	"rating": "omitempty,gte=1,lte=5",
}

var CreateCoupon = Rules{
	"name":     "required,min=3,max=32",
	"expire":   "required",
	"discount": "required,gt=0,lte=100",
}

var UpdateCoupon = Rules{
	"name":     "omitempty,min=3,max=32",
	"discount": "omitempty,gt=0,lte=100",
}

var CreateUser = Rules{
	"name":     "required,min=2,max=100",
	"email":    "required,email",
	"password": "required,min=6",
	"role":     "omitempty,oneof=user manager admin",
	"phone":    "omitempty,e164",
}

var UpdateUser = Rules{
	"name":  optionalName,
	"email": "omitempty,email",
	"role":  "omitempty,oneof=user manager admin",
	"phone": "omitempty,e164",
}

var ResetPassword = Rules{"password": "required,min=6"}

var Signup = Rules{
	"name":            "required,min=2,max=100",
	"email":           "required,email",
	"password":        "required,min=6",
	"confirmPassword": "required",
	"phone":           "omitempty,e164",
}

var Login = Rules{
	"email":    "required,email",
	"password": "required",
}

var ChangePassword = Rules{
	"currentPassword": "required",
	"password":        "required,min=6",
	"confirmPassword": "required",
}

var UpdateMe = Rules{
	"name":  optionalName,
	"email": "omitempty,email",
	"phone": "omitempty,e164",
}

var AddToCart = Rules{
	"productId": "required," + objectID,
	"color":     "omitempty,max=32",
}

var UpdateCartItem = Rules{"quantity": "required,gte=1"}

var ApplyCoupon = Rules{"coupon": "required"}

var Wishlist = Rules{"productId": "required," + objectID}

var Address = Rules{
	"alias":      "required,max=32",
	"details":    "required,max=200",
	"phone":      "omitempty,e164",
	"city":       "required,max=64",
	"postalCode": "omitempty,max=16",
}

var Presign = Rules{
	"folder":      "required,oneof=categories brands products users",
	"fileName":    "required,max=200",
	"contentType": "required",
}
